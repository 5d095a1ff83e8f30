package twitter

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/fimi-watch/archive-worker/pkg/client"
)

// Estimate statuses. Only the unsupported-range case is raised as an error;
// everything else, including malformed responses, is folded into the result
// so the caller decides escalation.
const (
	EstimateStatusSuccess            = "success"
	EstimateStatusAPIError           = "error_api_response"
	EstimateStatusUnexpectedResponse = "error_unexpected_response"
)

var validGranularities = []string{"minute", "hour", "day"}

// CountAPI is the counting capability the estimator drives.
type CountAPI interface {
	CountTweets(ctx context.Context, endpoint string, p client.CountParams) (*client.CountsResult, error)
	FullArchive() bool
}

// EstimateResult is the outcome of one count request.
type EstimateResult struct {
	Query       string               `json:"query"`
	Count       int                  `json:"estimated_count"`
	Status      string               `json:"status"`
	Granularity string               `json:"granularity_used,omitempty"`
	Breakdown   []client.CountBucket `json:"data_breakdown,omitempty"`
	Details     string               `json:"details,omitempty"`
}

// Estimate returns an approximate match count for a query over a UTC window.
// Windows starting more than six days ago use the full-history count
// endpoint, which needs full-archive credentials; younger windows use the
// recent endpoint. The recent endpoint only accepts non-default
// granularities, so "day" is not forced onto it.
func Estimate(ctx context.Context, api CountAPI, query string, w Window, granularity string) (*EstimateResult, error) {
	w = w.UTC()
	mode := modeFor(w.Start, time.Now())
	if mode == modeFullArchive && !api.FullArchive() {
		return nil, fmt.Errorf("window starts %s: %w", w.Start.Format(time.RFC3339), ErrUnsupportedRange)
	}

	if granularity != "" && !slices.Contains(validGranularities, granularity) {
		granularity = "day"
	}
	params := client.CountParams{
		Query:     query,
		StartTime: w.Start,
		EndTime:   w.End,
	}
	if granularity != "" && (mode == modeFullArchive || granularity != "day") {
		params.Granularity = granularity
	}

	logrus.Debugf("estimating counts for query=%q start=%s end=%s granularity=%q",
		query, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), params.Granularity)

	res, err := api.CountTweets(ctx, mode.countsEndpoint(), params)
	if err != nil {
		return &EstimateResult{
			Query:   query,
			Status:  EstimateStatusAPIError,
			Details: err.Error(),
		}, nil
	}
	if res.Meta.TotalTweetCount == nil {
		return &EstimateResult{
			Query:   query,
			Status:  EstimateStatusUnexpectedResponse,
			Details: fmt.Sprintf("response meta missing total_tweet_count: %s", string(res.Raw)),
		}, nil
	}

	return &EstimateResult{
		Query:       query,
		Count:       *res.Meta.TotalTweetCount,
		Status:      EstimateStatusSuccess,
		Granularity: params.Granularity,
		Breakdown:   res.Data,
	}, nil
}
