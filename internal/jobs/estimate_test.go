package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobs/stats"
	"github.com/fimi-watch/archive-worker/internal/jobs/twitter"
	"github.com/fimi-watch/archive-worker/pkg/client"
)

var _ = Describe("TweetEstimator", func() {
	It("builds one count term per account and per query", func() {
		terms := estimateTerms([]string{"alice", "bob"}, []string{"#topic", ""})
		Expect(terms).To(Equal([]string{"from:alice", "from:bob", "#topic"}))
	})

	It("fails without a user token when no app-only pool is configured", func() {
		estimator := NewTweetEstimator(types.JobConfiguration{}, nil, stats.StartCollector(8))

		res, err := estimator.ExecuteJob(types.Job{
			Type: TweetEstimateJobType,
			UUID: "est-1",
			Arguments: types.JobArguments{
				"queries":    []string{"#topic"},
				"start_date": "2023-06-10",
				"end_date":   "2023-06-12",
			},
		}, func(types.JobStatus) {})

		Expect(err).To(HaveOccurred())
		Expect(res.Error).To(ContainSubstring("no app-only credentials"))
	})

	It("rejects jobs without accounts or queries", func() {
		estimator := NewTweetEstimator(types.JobConfiguration{
			"twitter_consumer_key":    "ck",
			"twitter_consumer_secret": "cs",
		}, nil, stats.StartCollector(8))

		_, err := estimator.ExecuteJob(types.Job{
			Type: TweetEstimateJobType,
			UUID: "est-2",
			Arguments: types.JobArguments{
				"start_date":         "2023-06-10",
				"end_date":           "2023-06-12",
				"user_twitter_token": types.TwitterToken{OAuthToken: "t", OAuthTokenSecret: "s"},
			},
		}, func(types.JobStatus) {})

		Expect(err).To(MatchError(ErrNoSearchTarget))
	})

	It("feeds rate limits back into the pool and counts them", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("x-rate-limit-reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c, err := client.NewTwitterXClient("tok", client.BaseURL(srv.URL))
		Expect(err).ToNot(HaveOccurred())
		pool := twitter.NewClientPool([]*client.TwitterXClient{c}, 10*time.Millisecond)
		collector := stats.StartCollector(8)

		api := &pooledCountAPI{client: c, pool: pool, stats: collector, workerID: "est-rate"}
		_, err = api.CountTweets(context.Background(), client.TweetsCountsRecent, client.CountParams{Query: "x"})
		Expect(err).To(HaveOccurred())

		By("cooling the exhausted credential down in the pool")
		_, err = pool.Acquire(context.Background())
		Expect(err).To(MatchError(twitter.ErrNoClients))

		By("recording a rate-limit error against the job")
		Eventually(func() string {
			data, jsonErr := collector.Json()
			Expect(jsonErr).ToNot(HaveOccurred())
			return string(data)
		}, "2s").Should(ContainSubstring(`"twitter_ratelimit_errors":1`))
	})
})
