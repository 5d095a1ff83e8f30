package client

import (
	"net/http"
	"time"
)

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	HTTPClient      *http.Client
	FullArchive     bool
	WaitOnRateLimit bool
}

type Option func(*Options) error

// BaseURL overrides the API base URL. Used by tests to point the client at a
// local server.
func BaseURL(u string) Option {
	return func(o *Options) error {
		o.BaseURL = u
		return nil
	}
}

func Timeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// HTTPClient supplies a pre-built HTTP client, e.g. one whose transport signs
// requests with user-delegated OAuth credentials.
func HTTPClient(hc *http.Client) Option {
	return func(o *Options) error {
		o.HTTPClient = hc
		return nil
	}
}

// FullArchive marks the client as entitled to the full-history search and
// count endpoints (an access-tier capability, not a runtime discovery).
func FullArchive() Option {
	return func(o *Options) error {
		o.FullArchive = true
		return nil
	}
}

// WaitOnRateLimit makes the client absorb rate-limit responses by sleeping
// until the advertised reset instant and retrying, instead of surfacing a
// RateLimitError. Transient server errors are retried with backoff in this
// mode as well.
func WaitOnRateLimit() Option {
	return func(o *Options) error {
		o.WaitOnRateLimit = true
		return nil
	}
}

func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		Timeout: 1 * time.Minute,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
