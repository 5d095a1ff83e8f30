package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobs/drive"
	"github.com/fimi-watch/archive-worker/internal/jobs/stats"
	"github.com/fimi-watch/archive-worker/internal/jobs/twitter"
	"github.com/fimi-watch/archive-worker/pkg/client"
)

// fakeSearch serves canned tweets in a single page.
type fakeSearch struct {
	tweets []json.RawMessage
	err    error
}

func (f *fakeSearch) SearchPage(_ context.Context, _ string, _ client.SearchParams) (*client.SearchPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := &client.SearchPage{}
	page.Data = f.tweets
	page.Meta.ResultCount = len(f.tweets)
	return page, nil
}

func (f *fakeSearch) FullArchive() bool { return true }

type uploadedFile struct {
	folderID string
	name     string
	payload  []byte
}

// fakeDrive is an in-memory drive.Store recording folder and file activity.
type fakeDrive struct {
	folders map[string]string // name+"/"+parent -> id
	creates int
	uploads []uploadedFile
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{folders: map[string]string{}}
}

func (f *fakeDrive) FindFolder(_ context.Context, name, parentID string) (string, error) {
	return f.folders[name+"/"+parentID], nil
}

func (f *fakeDrive) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	f.creates++
	id := fmt.Sprintf("folder-%d", f.creates)
	f.folders[name+"/"+parentID] = id
	return id, nil
}

func (f *fakeDrive) UploadJSON(_ context.Context, folderID, name string, payload []byte) (*drive.FileInfo, error) {
	f.uploads = append(f.uploads, uploadedFile{folderID: folderID, name: name, payload: payload})
	return &drive.FileInfo{ID: "file-1", Name: name, Size: int64(len(payload))}, nil
}

func newTestDownloader(search twitter.SearchAPI, store drive.Store) *TweetDownloader {
	d := NewTweetDownloader(types.JobConfiguration{}, stats.StartCollector(32))
	d.newSearch = func(types.TwitterToken) (twitter.SearchAPI, error) { return search, nil }
	d.newStore = func(context.Context, types.GoogleToken) (drive.Store, error) { return store, nil }
	d.now = func() time.Time { return time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC) }
	return d
}

func downloadArguments() types.JobArguments {
	return types.JobArguments{
		"accounts":   []string{"newsbot"},
		"FIMI_Event": "Election2023",
		"start_date": "2023-06-10",
		"end_date":   "2023-06-12",
		"user_twitter_token": types.TwitterToken{
			OAuthToken:       "tok",
			OAuthTokenSecret: "secret",
		},
		"user_google_token": types.GoogleToken{AccessToken: "gtok"},
	}
}

var _ = Describe("TweetDownloader", func() {
	var statuses []types.JobStatus
	report := func(s types.JobStatus) { statuses = append(statuses, s) }

	BeforeEach(func() {
		statuses = nil
	})

	It("archives fetched tweets as a JSON file on Drive", func() {
		search := &fakeSearch{tweets: []json.RawMessage{
			json.RawMessage(`{"id":"1","text":"élection results <soon>"}`),
			json.RawMessage(`{"id":"2","text":"second"}`),
			json.RawMessage(`{"id":"3","text":"third"}`),
		}}
		store := newFakeDrive()
		downloader := newTestDownloader(search, store)

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-1",
			Arguments: downloadArguments(),
		}, report)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Error).To(BeEmpty())

		summary := res.Data.(*DownloadSummary)
		Expect(summary.Status).To(Equal("success"))
		Expect(summary.TweetsDownloaded).To(Equal(3))
		Expect(summary.DriveFileID).To(Equal("file-1"))

		By("creating the event folder and the target folder inside it")
		Expect(store.creates).To(Equal(2))
		Expect(store.folders).To(HaveKey("Election2023/"))
		Expect(store.folders["newsbot/"+store.folders["Election2023/"]]).NotTo(BeEmpty())

		By("uploading a decodable archive with all records")
		Expect(store.uploads).To(HaveLen(1))
		var bundle twitter.ResultBundle
		Expect(json.Unmarshal(store.uploads[0].payload, &bundle)).To(Succeed())
		Expect(bundle.Tweets).To(HaveLen(3))
		Expect(bundle.Query).To(Equal("from:newsbot"))

		By("keeping non-ASCII and HTML characters literal in the file")
		Expect(bytes.Contains(store.uploads[0].payload, []byte("élection results <soon>"))).To(BeTrue())

		By("naming the file with the archive slug and an upload timestamp")
		Expect(store.uploads[0].name).To(MatchRegexp(`^FIMI_newsbot_download_\d{14}_\d{14}_20230615103000\.json$`))

		By("publishing lifecycle statuses along the way")
		Expect(statuses[0].State).To(Equal(types.JobStateStarted))
		Expect(statuses).To(ContainElement(HaveField("State", types.JobStateProgress)))
	})

	It("files archives under DefaultFIMIEvent when no event is given", func() {
		store := newFakeDrive()
		downloader := newTestDownloader(&fakeSearch{tweets: []json.RawMessage{json.RawMessage(`{"id":"1"}`)}}, store)

		args := downloadArguments()
		delete(args, "FIMI_Event")

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-default-event",
			Arguments: args,
		}, report)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Error).To(BeEmpty())
		Expect(store.folders).To(HaveKey("DefaultFIMIEvent/"))
	})

	It("sanitizes event and account names before creating folders", func() {
		store := newFakeDrive()
		downloader := newTestDownloader(&fakeSearch{tweets: []json.RawMessage{json.RawMessage(`{"id":"1"}`)}}, store)

		args := downloadArguments()
		args["FIMI_Event"] = "Election/2023:Q1"
		args["accounts"] = []string{`news\bot`}

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-sanitize",
			Arguments: args,
		}, report)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Error).To(BeEmpty())

		Expect(store.folders).To(HaveKey("Election_2023_Q1/"))
		eventID := store.folders["Election_2023_Q1/"]
		Expect(store.folders).To(HaveKey("news_bot/" + eventID))
		Expect(store.folders).NotTo(HaveKey("Election/2023:Q1/"))
	})

	It("reports success without uploading when nothing matched", func() {
		store := newFakeDrive()
		downloader := newTestDownloader(&fakeSearch{}, store)

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-2",
			Arguments: downloadArguments(),
		}, report)

		Expect(err).NotTo(HaveOccurred())
		summary := res.Data.(*DownloadSummary)
		Expect(summary.TweetsDownloaded).To(BeZero())
		Expect(summary.DriveFileID).To(BeEmpty())
		Expect(store.uploads).To(BeEmpty())
	})

	It("fails before touching Drive when the Drive service cannot be built", func() {
		store := newFakeDrive()
		downloader := newTestDownloader(&fakeSearch{}, store)
		downloader.newStore = func(context.Context, types.GoogleToken) (drive.Store, error) {
			return nil, fmt.Errorf("Google Drive service initialization failed: token refresh: boom")
		}

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-3",
			Arguments: downloadArguments(),
		}, report)

		Expect(err).To(HaveOccurred())
		Expect(res.Error).To(ContainSubstring("Google Drive"))
		Expect(store.creates).To(BeZero())
		Expect(store.uploads).To(BeEmpty())
	})

	It("fails on an unusable twitter token", func() {
		store := newFakeDrive()
		downloader := NewTweetDownloader(types.JobConfiguration{}, stats.StartCollector(32))
		downloader.newStore = func(context.Context, types.GoogleToken) (drive.Store, error) { return store, nil }

		args := downloadArguments()
		args["user_twitter_token"] = types.TwitterToken{}

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-4",
			Arguments: args,
		}, report)

		Expect(err).To(HaveOccurred())
		Expect(res.Error).To(ContainSubstring("twitter client initialization failed"))
	})

	It("rejects malformed dates", func() {
		downloader := newTestDownloader(&fakeSearch{}, newFakeDrive())

		args := downloadArguments()
		args["start_date"] = "next tuesday"

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-5",
			Arguments: args,
		}, report)

		Expect(err).To(HaveOccurred())
		Expect(res.Error).To(ContainSubstring("invalid start_date"))
	})

	It("rejects jobs without any search target", func() {
		downloader := newTestDownloader(&fakeSearch{}, newFakeDrive())

		args := downloadArguments()
		args["accounts"] = []string{}

		_, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-6",
			Arguments: args,
		}, report)

		Expect(err).To(MatchError(ErrNoSearchTarget))
	})

	It("returns the partial count when fetching dies midway", func() {
		search := &fakeSearch{err: fmt.Errorf("connection reset")}
		downloader := newTestDownloader(search, newFakeDrive())

		res, err := downloader.ExecuteJob(types.Job{
			Type:      TweetDownloadJobType,
			UUID:      "job-7",
			Arguments: downloadArguments(),
		}, report)

		Expect(err).To(HaveOccurred())
		summary := res.Data.(*DownloadSummary)
		Expect(summary.Status).To(Equal("error"))
		Expect(summary.Message).To(ContainSubstring("connection reset"))
	})
})

var _ = Describe("deriveSearchTarget", func() {
	It("prefers the first account and appends the first query", func() {
		target, query, err := deriveSearchTarget([]string{"alice"}, []string{"from:alice OR #x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(Equal("alice"))
		Expect(query).To(Equal("from:alice from:alice OR #x"))
	})

	It("searches the first query verbatim when no account is given", func() {
		target, query, err := deriveSearchTarget(nil, []string{`#longhashtag AND "exact phrase" AND more terms`})
		Expect(err).NotTo(HaveOccurred())
		Expect(query).To(Equal(`#longhashtag AND "exact phrase" AND more terms`))
		Expect(target).To(Equal(`#longhashtag AND _exact phrase`))
	})

	It("truncates long queries on a rune boundary", func() {
		target, _, err := deriveSearchTarget(nil, []string{strings.Repeat("é", 40)})
		Expect(err).NotTo(HaveOccurred())
		Expect(utf8.ValidString(target)).To(BeTrue())
		Expect([]rune(target)).To(HaveLen(30))
	})

	It("errors when neither accounts nor queries are present", func() {
		_, _, err := deriveSearchTarget(nil, nil)
		Expect(err).To(MatchError(ErrNoSearchTarget))
	})
})
