package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

const (
	baseURL = "https://api.x.com/2"

	TweetsSearchRecent = "tweets/search/recent"
	TweetsSearchAll    = "tweets/search/all"
	TweetsCountsRecent = "tweets/counts/recent"
	TweetsCountsAll    = "tweets/counts/all"
)

// RateLimitError is returned on HTTP 429 when the client is not configured to
// wait out rate limits itself. ResetAt is taken from the x-rate-limit-reset
// header; when the header is absent it defaults to 15 minutes out.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// APIError is any non-2xx response other than a rate limit.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// TwitterXClient is a thin client for the Twitter API v2. It authenticates
// either with an app-only bearer token or with a caller-supplied HTTP client
// whose transport signs requests (user context).
type TwitterXClient struct {
	apiKey          string
	baseUrl         string
	httpClient      *http.Client
	fullArchive     bool
	waitOnRateLimit bool
}

// NewTwitterXClient creates an app-only client for the given bearer token.
func NewTwitterXClient(apiKey string, opts ...Option) (*TwitterXClient, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	c := newFromOptions(o)
	c.apiKey = apiKey
	logrus.Debug("TwitterXClient instantiated (app-only) using base URL: ", c.baseUrl)
	return c, nil
}

// NewUserTwitterXClient creates a user-context client around a signed HTTP
// client (see pkg/client.HTTPClient option; typically an OAuth 1.0a signer).
func NewUserTwitterXClient(hc *http.Client, opts ...Option) (*TwitterXClient, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	o.HTTPClient = hc
	c := newFromOptions(o)
	logrus.Debug("TwitterXClient instantiated (user context) using base URL: ", c.baseUrl)
	return c, nil
}

func newFromOptions(o *Options) *TwitterXClient {
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	base := o.BaseURL
	if base == "" {
		base = baseURL
	}
	return &TwitterXClient{
		baseUrl:         base,
		httpClient:      hc,
		fullArchive:     o.FullArchive,
		waitOnRateLimit: o.WaitOnRateLimit,
	}
}

// FullArchive reports whether the credentials behind this client may use the
// full-history search and count endpoints.
func (c *TwitterXClient) FullArchive() bool {
	return c.fullArchive
}

// Get performs a GET against the given endpoint. In wait-on-rate-limit mode,
// 429s are absorbed by sleeping until the reset instant and transient server
// errors are retried with exponential backoff; otherwise both surface to the
// caller as typed errors.
func (c *TwitterXClient) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if !c.waitOnRateLimit {
		return c.attempt(ctx, endpoint, params)
	}

	var out []byte
	op := func() error {
		data, err := c.attempt(ctx, endpoint, params)
		if err == nil {
			out = data
			return nil
		}
		var rle *RateLimitError
		if errors.As(err, &rle) {
			logrus.Warnf("rate limited on %s, waiting until %s", endpoint, rle.ResetAt.UTC().Format(time.RFC3339))
			if werr := sleepUntil(ctx, rle.ResetAt); werr != nil {
				return backoff.Permanent(werr)
			}
			return err
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TwitterXClient) attempt(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/%s", c.baseUrl, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	logrus.Debug("GET request to: ", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making GET request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{ResetAt: rateLimitReset(resp.Header)}
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

func rateLimitReset(h http.Header) time.Time {
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}
	return time.Now().Add(15 * time.Minute)
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// SearchParams holds the parameters of one search page request.
type SearchParams struct {
	Query       string
	StartTime   time.Time
	EndTime     time.Time
	MaxResults  int
	NextToken   string
	TweetFields []string
	Expansions  []string
	UserFields  []string
	MediaFields []string
	PollFields  []string
	PlaceFields []string
}

// SearchPage is one page of search results. Tweet and expansion objects are
// kept as raw JSON so archives preserve whatever the API returned.
type SearchPage struct {
	Data     []json.RawMessage `json:"data"`
	Includes struct {
		Media  []json.RawMessage `json:"media"`
		Users  []json.RawMessage `json:"users"`
		Polls  []json.RawMessage `json:"polls"`
		Places []json.RawMessage `json:"places"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// SearchPage requests a single page from the given search endpoint
// (TweetsSearchRecent or TweetsSearchAll).
func (c *TwitterXClient) SearchPage(ctx context.Context, endpoint string, p SearchParams) (*SearchPage, error) {
	params := url.Values{}
	params.Add("query", p.Query)
	if !p.StartTime.IsZero() {
		params.Add("start_time", p.StartTime.UTC().Format(time.RFC3339))
	}
	if !p.EndTime.IsZero() {
		params.Add("end_time", p.EndTime.UTC().Format(time.RFC3339))
	}
	if p.MaxResults > 0 {
		params.Add("max_results", strconv.Itoa(p.MaxResults))
	}
	if p.NextToken != "" {
		params.Add("next_token", p.NextToken)
	}
	addFields(params, "tweet.fields", p.TweetFields)
	addFields(params, "expansions", p.Expansions)
	addFields(params, "user.fields", p.UserFields)
	addFields(params, "media.fields", p.MediaFields)
	addFields(params, "poll.fields", p.PollFields)
	addFields(params, "place.fields", p.PlaceFields)

	body, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}

	var page SearchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	logrus.Debug("search page fetched, result count: ", page.Meta.ResultCount)
	return &page, nil
}

// CountParams holds the parameters of a tweet count request.
type CountParams struct {
	Query       string
	StartTime   time.Time
	EndTime     time.Time
	Granularity string
}

type CountBucket struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	TweetCount int    `json:"tweet_count"`
}

// CountsResult is a tweet count response. TotalTweetCount is a pointer so a
// well-formed envelope missing the count can be told apart from a zero count;
// Raw carries the body for diagnosis in that case.
type CountsResult struct {
	Data []CountBucket `json:"data"`
	Meta struct {
		TotalTweetCount *int `json:"total_tweet_count"`
	} `json:"meta"`
	Raw []byte `json:"-"`
}

// CountTweets requests a match count from the given counts endpoint
// (TweetsCountsRecent or TweetsCountsAll).
func (c *TwitterXClient) CountTweets(ctx context.Context, endpoint string, p CountParams) (*CountsResult, error) {
	params := url.Values{}
	params.Add("query", p.Query)
	if !p.StartTime.IsZero() {
		params.Add("start_time", p.StartTime.UTC().Format(time.RFC3339))
	}
	if !p.EndTime.IsZero() {
		params.Add("end_time", p.EndTime.UTC().Format(time.RFC3339))
	}
	if p.Granularity != "" {
		params.Add("granularity", p.Granularity)
	}

	body, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute count query: %w", err)
	}

	var result CountsResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	result.Raw = body
	return &result, nil
}

func addFields(params url.Values, key string, fields []string) {
	if len(fields) > 0 {
		params.Add(key, strings.Join(fields, ","))
	}
}
