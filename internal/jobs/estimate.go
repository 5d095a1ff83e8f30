package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobs/stats"
	"github.com/fimi-watch/archive-worker/internal/jobs/twitter"
	"github.com/fimi-watch/archive-worker/pkg/client"
)

const TweetEstimateJobType = "tweet-estimate"

// EstimateArgs are the arguments of one tweet-estimate job. The token is
// optional: without it the estimate runs on the worker's own pool of app-only
// credentials.
type EstimateArgs struct {
	Accounts     []string           `json:"accounts"`
	Queries      []string           `json:"queries"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	Granularity  string             `json:"granularity"`
	TwitterToken types.TwitterToken `json:"user_twitter_token"`
}

// TweetEstimator answers "roughly how many tweets would this download
// archive" without fetching any of them. Each account and each query becomes
// one count request.
type TweetEstimator struct {
	twitterConfig twitter.ClientConfig
	pool          *twitter.ClientPool
	stats         *stats.StatsCollector
}

func NewTweetEstimator(jc types.JobConfiguration, pool *twitter.ClientPool, statsCollector *stats.StatsCollector) *TweetEstimator {
	return &TweetEstimator{
		twitterConfig: twitter.ClientConfig{
			ConsumerKey:    jc.GetString("twitter_consumer_key", ""),
			ConsumerSecret: jc.GetString("twitter_consumer_secret", ""),
			FullArchive:    jc.GetBool("twitter_full_archive", false),
		},
		pool:  pool,
		stats: statsCollector,
	}
}

func (e *TweetEstimator) ExecuteJob(j types.Job, report types.ProgressFn) (types.JobResult, error) {
	args := &EstimateArgs{}
	if err := j.Arguments.Unmarshal(args); err != nil {
		return types.JobResult{Error: fmt.Sprintf("Invalid arguments: %v", err)}, err
	}

	report(types.JobStatus{State: types.JobStateStarted, Status: "Estimating tweet counts"})

	ctx := context.Background()
	var cancel context.CancelFunc
	if j.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	api, err := e.countClient(ctx, args.TwitterToken, j.UUID)
	if err != nil {
		e.stats.Add(j.UUID, stats.TwitterAuthErrors, 1)
		return types.JobResult{Error: err.Error()}, err
	}

	window, err := parseWindow(args.StartDate, args.EndDate)
	if err != nil {
		e.stats.Add(j.UUID, stats.EstimateErrors, 1)
		return types.JobResult{Error: err.Error()}, err
	}

	terms := estimateTerms(args.Accounts, args.Queries)
	if len(terms) == 0 {
		e.stats.Add(j.UUID, stats.EstimateErrors, 1)
		return types.JobResult{Error: ErrNoSearchTarget.Error()}, ErrNoSearchTarget
	}

	results := make([]*twitter.EstimateResult, 0, len(terms))
	for _, term := range terms {
		res, err := twitter.Estimate(ctx, api, term, window, args.Granularity)
		if err != nil {
			e.stats.Add(j.UUID, stats.EstimateErrors, 1)
			return types.JobResult{Error: err.Error()}, err
		}
		e.stats.Add(j.UUID, stats.EstimateQueries, 1)
		results = append(results, res)
	}

	logrus.Infof("job %s estimated %d terms", j.UUID, len(results))
	return types.JobResult{Data: results}, nil
}

// countClient picks a user-context client when the arguments carry a
// delegated token, falling back to the worker's shared app-only pool.
func (e *TweetEstimator) countClient(ctx context.Context, token types.TwitterToken, workerID string) (twitter.CountAPI, error) {
	if token.UserDelegated() {
		return twitter.NewUserClient(token, e.twitterConfig)
	}
	if e.pool == nil {
		return nil, errors.New("no user token provided and no app-only credentials configured")
	}
	c, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pooledCountAPI{client: c, pool: e.pool, stats: e.stats, workerID: workerID}, nil
}

// pooledCountAPI funnels rate-limit responses back into the pool's cool-down
// table so the next job rotates past the exhausted credential.
type pooledCountAPI struct {
	client   *client.TwitterXClient
	pool     *twitter.ClientPool
	stats    *stats.StatsCollector
	workerID string
}

func (p *pooledCountAPI) CountTweets(ctx context.Context, endpoint string, params client.CountParams) (*client.CountsResult, error) {
	res, err := p.client.CountTweets(ctx, endpoint, params)
	var rle *client.RateLimitError
	if errors.As(err, &rle) {
		p.stats.Add(p.workerID, stats.TwitterRateErrors, 1)
		p.pool.ReportRateLimited(p.client, rle.ResetAt)
	}
	return res, err
}

func (p *pooledCountAPI) FullArchive() bool { return p.client.FullArchive() }

func estimateTerms(accounts, queries []string) []string {
	terms := make([]string, 0, len(accounts)+len(queries))
	for _, acc := range accounts {
		if acc != "" {
			terms = append(terms, "from:"+acc)
		}
	}
	for _, q := range queries {
		if q != "" {
			terms = append(terms, q)
		}
	}
	return terms
}
