package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/internal/jobs/drive"
	"github.com/fimi-watch/archive-worker/internal/jobs/stats"
	"github.com/fimi-watch/archive-worker/internal/jobs/twitter"
	"github.com/fimi-watch/archive-worker/pkg/slug"
)

const TweetDownloadJobType = "tweet-download"

// ErrNoSearchTarget means the job arguments name neither an account nor a
// query to search for.
var ErrNoSearchTarget = errors.New("no accounts or queries provided")

const defaultDownloadLimit = 100

// maxQueryTargetLength bounds the folder name derived from a free-form query.
const maxQueryTargetLength = 30

// DownloadArgs are the arguments of one tweet-download job. Both tokens
// belong to the requesting user; the worker holds them only for the lifetime
// of the job.
type DownloadArgs struct {
	Accounts     []string           `json:"accounts"`
	Queries      []string           `json:"queries"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	Event        string             `json:"FIMI_Event"`
	Limit        *int               `json:"download_limit_per_task"`
	TwitterToken types.TwitterToken `json:"user_twitter_token"`
	GoogleToken  types.GoogleToken  `json:"user_google_token"`
}

// DownloadSummary is the result payload of a finished download job.
type DownloadSummary struct {
	Status           string `json:"status"`
	TweetsDownloaded int    `json:"tweets_downloaded"`
	DriveFileID      string `json:"drive_file_id,omitempty"`
	FileName         string `json:"file_name,omitempty"`
	DriveFolderID    string `json:"drive_folder_id,omitempty"`
	Message          string `json:"message,omitempty"`
}

// TweetDownloader archives the results of one search window as a JSON file
// on the requesting user's Google Drive.
type TweetDownloader struct {
	twitterConfig twitter.ClientConfig
	driveConfig   drive.ServiceConfig
	stats         *stats.StatsCollector

	// Factories are fields so tests can substitute fakes for the live APIs.
	newSearch func(token types.TwitterToken) (twitter.SearchAPI, error)
	newStore  func(ctx context.Context, token types.GoogleToken) (drive.Store, error)
	now       func() time.Time
}

func NewTweetDownloader(jc types.JobConfiguration, statsCollector *stats.StatsCollector) *TweetDownloader {
	twitterConfig := twitter.ClientConfig{
		ConsumerKey:    jc.GetString("twitter_consumer_key", ""),
		ConsumerSecret: jc.GetString("twitter_consumer_secret", ""),
		FullArchive:    jc.GetBool("twitter_full_archive", false),
	}
	driveConfig := drive.ServiceConfig{
		ClientID:     jc.GetString("google_client_id", ""),
		ClientSecret: jc.GetString("google_client_secret", ""),
	}

	d := &TweetDownloader{
		twitterConfig: twitterConfig,
		driveConfig:   driveConfig,
		stats:         statsCollector,
		now:           time.Now,
	}
	d.newSearch = func(token types.TwitterToken) (twitter.SearchAPI, error) {
		return twitter.NewUserClient(token, d.twitterConfig)
	}
	d.newStore = func(ctx context.Context, token types.GoogleToken) (drive.Store, error) {
		return drive.NewService(ctx, d.driveConfig, token)
	}
	return d
}

func (d *TweetDownloader) ExecuteJob(j types.Job, report types.ProgressFn) (types.JobResult, error) {
	logrus.Infof("Starting tweet download job %s", j.UUID)
	d.stats.Add(j.UUID, stats.DownloadJobs, 1)

	args := &DownloadArgs{}
	if err := j.Arguments.Unmarshal(args); err != nil {
		d.stats.Add(j.UUID, stats.DownloadErrors, 1)
		return types.JobResult{Error: fmt.Sprintf("Invalid arguments: %v", err)}, err
	}

	report(types.JobStatus{
		State:  types.JobStateStarted,
		Status: "Task started",
		Meta: map[string]any{
			"params_received": map[string]any{
				"accounts":   args.Accounts,
				"queries":    args.Queries,
				"start_date": args.StartDate,
				"end_date":   args.EndDate,
				"fimi_event": args.Event,
			},
		},
	})

	ctx := context.Background()
	var cancel context.CancelFunc
	if j.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	// Both clients are built up front so a job with dead credentials fails
	// before any folder is touched.
	search, err := d.newSearch(args.TwitterToken)
	if err != nil {
		d.stats.Add(j.UUID, stats.TwitterAuthErrors, 1)
		return types.JobResult{Error: err.Error()}, err
	}
	store, err := d.newStore(ctx, args.GoogleToken)
	if err != nil {
		d.stats.Add(j.UUID, stats.DriveErrors, 1)
		return types.JobResult{Error: err.Error()}, err
	}

	window, err := parseWindow(args.StartDate, args.EndDate)
	if err != nil {
		d.stats.Add(j.UUID, stats.DownloadErrors, 1)
		return types.JobResult{Error: err.Error()}, err
	}

	target, query, err := deriveSearchTarget(args.Accounts, args.Queries)
	if err != nil {
		d.stats.Add(j.UUID, stats.DownloadErrors, 1)
		return types.JobResult{Error: err.Error()}, err
	}
	target = slug.Sanitize(target)

	event := args.Event
	if event == "" {
		event = "DefaultFIMIEvent"
	}
	event = slug.Sanitize(event)

	report(types.JobStatus{
		State:  types.JobStateProgress,
		Status: fmt.Sprintf("Setting up Drive folders for %s", target),
	})

	eventFolderID, err := drive.FindOrCreateFolder(ctx, store, event, "")
	if err != nil {
		d.stats.Add(j.UUID, stats.DriveErrors, 1)
		return types.JobResult{Error: fmt.Sprintf("Drive folder setup failed: %v", err)}, err
	}
	targetFolderID, err := drive.FindOrCreateFolder(ctx, store, target, eventFolderID)
	if err != nil {
		d.stats.Add(j.UUID, stats.DriveErrors, 1)
		return types.JobResult{Error: fmt.Sprintf("Drive folder setup failed: %v", err)}, err
	}

	report(types.JobStatus{
		State:  types.JobStateProgress,
		Status: fmt.Sprintf("Fetching tweets for %s", target),
	})

	limit := defaultDownloadLimit
	if args.Limit != nil {
		limit = *args.Limit
	}
	bundle, err := twitter.Fetch(ctx, search, query, window, twitter.ComprehensiveFields(), limit)
	if err != nil {
		d.stats.Add(j.UUID, stats.DownloadErrors, 1)
		summary := &DownloadSummary{
			Status:           "error",
			TweetsDownloaded: bundle.Meta.TotalCollected,
			Message:          err.Error(),
		}
		return types.JobResult{Error: err.Error(), Data: summary}, err
	}
	d.stats.Add(j.UUID, stats.TweetsDownloaded, uint(len(bundle.Tweets)))

	report(types.JobStatus{
		State:  types.JobStateProgress,
		Status: fmt.Sprintf("Collected %d tweets for %s", len(bundle.Tweets), target),
	})

	if len(bundle.Tweets) == 0 {
		logrus.Infof("no tweets found for %q, skipping upload", query)
		return types.JobResult{Data: &DownloadSummary{
			Status:           "success",
			TweetsDownloaded: 0,
			DriveFolderID:    targetFolderID,
			Message:          "No tweets found for the given window",
		}}, nil
	}

	payload, err := encodeBundle(bundle)
	if err != nil {
		d.stats.Add(j.UUID, stats.DownloadErrors, 1)
		return types.JobResult{Error: fmt.Sprintf("encoding results: %v", err)}, err
	}

	fileName := fmt.Sprintf("%s_%s.json",
		slug.Archive(target, "download", window.Start, window.End),
		d.now().UTC().Format("20060102150405"))

	info, err := store.UploadJSON(ctx, targetFolderID, fileName, payload)
	if err != nil {
		d.stats.Add(j.UUID, stats.DriveErrors, 1)
		return types.JobResult{Error: fmt.Sprintf("Drive upload failed: %v", err)}, err
	}
	d.stats.Add(j.UUID, stats.DriveUploads, 1)

	logrus.Infof("job %s archived %d tweets to %s", j.UUID, len(bundle.Tweets), info.Name)
	return types.JobResult{Data: &DownloadSummary{
		Status:           "success",
		TweetsDownloaded: len(bundle.Tweets),
		DriveFileID:      info.ID,
		FileName:         info.Name,
		DriveFolderID:    targetFolderID,
	}}, nil
}

// deriveSearchTarget turns the accounts/queries arguments into a folder name
// and a search expression. The first account wins over any query; with only
// queries the first one is searched verbatim and its sanitized prefix names
// the folder.
func deriveSearchTarget(accounts, queries []string) (target, query string, err error) {
	switch {
	case len(accounts) > 0 && accounts[0] != "":
		target = accounts[0]
		query = "from:" + accounts[0]
		if len(queries) > 0 && queries[0] != "" {
			query += " " + queries[0]
		}
		return target, query, nil
	case len(queries) > 0 && queries[0] != "":
		query = queries[0]
		name := query
		if runes := []rune(name); len(runes) > maxQueryTargetLength {
			name = string(runes[:maxQueryTargetLength])
		}
		return slug.Sanitize(name), query, nil
	default:
		return "", "", ErrNoSearchTarget
	}
}

// parseWindow accepts the date formats the submitting UI produces, most
// specific first. Date-only values mean midnight UTC.
func parseWindow(start, end string) (twitter.Window, error) {
	startTime, err := parseDate(start)
	if err != nil {
		return twitter.Window{}, fmt.Errorf("invalid start_date %q: %w", start, err)
	}
	endTime, err := parseDate(end)
	if err != nil {
		return twitter.Window{}, fmt.Errorf("invalid end_date %q: %w", end, err)
	}
	if !startTime.Before(endTime) {
		return twitter.Window{}, fmt.Errorf("start_date %q is not before end_date %q", start, end)
	}
	return twitter.Window{Start: startTime, End: endTime}, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// encodeBundle renders the archive file. HTML escaping is off so tweet text
// keeps its original characters in the stored file.
func encodeBundle(bundle *twitter.ResultBundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
