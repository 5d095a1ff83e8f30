package twitter

import (
	"errors"
	"fmt"
	"time"

	"github.com/fimi-watch/archive-worker/pkg/client"
)

// Windows starting earlier than this before now need the full-history
// endpoints; anything younger is served by the recent endpoints.
const fullArchiveAge = 6 * 24 * time.Hour

// ErrUnsupportedRange means the requested window needs full-history access
// that the current credentials lack.
var ErrUnsupportedRange = errors.New("time window requires full-archive access")

// ClientInitError wraps a failure to reconstruct an API client from a
// persisted token record.
type ClientInitError struct {
	Err error
}

func (e *ClientInitError) Error() string {
	return fmt.Sprintf("twitter client initialization failed: %v", e.Err)
}

func (e *ClientInitError) Unwrap() error {
	return e.Err
}

// Window is a UTC time interval, start inclusive, end exclusive. Validity
// (start < end) is a caller responsibility.
type Window struct {
	Start time.Time
	End   time.Time
}

// UTC returns the window with both endpoints normalized to UTC.
func (w Window) UTC() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}

type searchMode int

const (
	modeRecent searchMode = iota
	modeFullArchive
)

// modeFor selects recent vs full-history access for a window start. A start
// exactly at now-6d is still served by the recent endpoints; only strictly
// older starts need the archive.
func modeFor(start, now time.Time) searchMode {
	if start.UTC().Before(now.UTC().Add(-fullArchiveAge)) {
		return modeFullArchive
	}
	return modeRecent
}

func (m searchMode) searchEndpoint() string {
	if m == modeFullArchive {
		return client.TweetsSearchAll
	}
	return client.TweetsSearchRecent
}

func (m searchMode) countsEndpoint() string {
	if m == modeFullArchive {
		return client.TweetsCountsAll
	}
	return client.TweetsCountsRecent
}

func (m searchMode) pageSize() int {
	if m == modeFullArchive {
		return pageSizeFullArchive
	}
	return pageSizeRecent
}
