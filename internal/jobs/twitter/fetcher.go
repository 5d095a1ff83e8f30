package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/pkg/client"
)

const (
	pageSizeRecent      = 100
	pageSizeFullArchive = 500
)

// SearchAPI is the paginated search capability the fetcher drives.
type SearchAPI interface {
	SearchPage(ctx context.Context, endpoint string, p client.SearchParams) (*client.SearchPage, error)
	FullArchive() bool
}

// ResultBundle aggregates everything collected by one fetch: the primary
// tweets plus the linked objects returned via expansions. All records stay
// raw JSON so the archived file reproduces the API's output byte for byte.
type ResultBundle struct {
	Query  string            `json:"query"`
	Status string            `json:"status"`
	Tweets []json.RawMessage `json:"tweets_data"`
	Media  []json.RawMessage `json:"includes_media"`
	Users  []json.RawMessage `json:"includes_users"`
	Polls  []json.RawMessage `json:"includes_polls"`
	Places []json.RawMessage `json:"includes_places"`
	Meta   BundleMeta        `json:"meta"`
}

type BundleMeta struct {
	TotalCollected int  `json:"total_collected"`
	Truncated      bool `json:"truncated"`
}

// Fetch pages through the search endpoint selected by the window age (same
// six-day rule as the estimator) and accumulates results until the source is
// exhausted or limit primary records were collected. A negative limit means
// no cap.
//
// The primary list is hard-truncated to the cap; the linked-object lists keep
// everything gathered through the last processed page, and duplicates across
// pages are kept as delivered. Changing either would change the bytes of
// archived files.
//
// On a mid-pagination error the bundle holds whatever was collected so far
// and is returned alongside the error; the caller decides whether the partial
// data is usable.
func Fetch(ctx context.Context, api SearchAPI, query string, w Window, fields FieldSelectors, limit int) (*ResultBundle, error) {
	w = w.UTC()
	bundle := &ResultBundle{
		Query:  query,
		Status: "success",
		Tweets: []json.RawMessage{},
		Media:  []json.RawMessage{},
		Users:  []json.RawMessage{},
		Polls:  []json.RawMessage{},
		Places: []json.RawMessage{},
	}

	mode := modeFor(w.Start, time.Now())
	if mode == modeFullArchive && !api.FullArchive() {
		bundle.Status = "error"
		return bundle, fmt.Errorf("window starts %s: %w", w.Start.Format(time.RFC3339), ErrUnsupportedRange)
	}

	collected := 0
	truncated := false
	nextToken := ""
	for {
		if limit >= 0 && collected >= limit {
			truncated = true
			break
		}

		page, err := api.SearchPage(ctx, mode.searchEndpoint(), client.SearchParams{
			Query:       query,
			StartTime:   w.Start,
			EndTime:     w.End,
			MaxResults:  mode.pageSize(),
			NextToken:   nextToken,
			TweetFields: fields.Tweet,
			Expansions:  fields.Expansions,
			UserFields:  fields.User,
			MediaFields: fields.Media,
			PollFields:  fields.Poll,
			PlaceFields: fields.Place,
		})
		if err != nil {
			bundle.Status = "error"
			bundle.Meta.TotalCollected = cappedCount(collected, limit)
			bundle.Meta.Truncated = truncated
			return bundle, fmt.Errorf("fetching tweets for query %q: %w", query, err)
		}

		bundle.Tweets = append(bundle.Tweets, page.Data...)
		bundle.Media = append(bundle.Media, page.Includes.Media...)
		bundle.Users = append(bundle.Users, page.Includes.Users...)
		bundle.Polls = append(bundle.Polls, page.Includes.Polls...)
		bundle.Places = append(bundle.Places, page.Includes.Places...)
		collected += len(page.Data)
		logrus.Debugf("collected %d tweets for query %q", collected, query)

		if page.Meta.NextToken == "" {
			break
		}
		nextToken = page.Meta.NextToken
	}

	if limit >= 0 && len(bundle.Tweets) > limit {
		bundle.Tweets = bundle.Tweets[:limit]
		truncated = true
	}
	bundle.Meta.TotalCollected = cappedCount(collected, limit)
	bundle.Meta.Truncated = truncated

	logrus.Infof("finished fetching, total tweets collected: %d for query %q", bundle.Meta.TotalCollected, query)
	return bundle, nil
}

func cappedCount(collected, limit int) int {
	if limit >= 0 && collected > limit {
		return limit
	}
	return collected
}
