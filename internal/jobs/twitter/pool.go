package twitter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/pkg/client"
)

// ErrNoClients means the pool is empty or no client became eligible within
// the configured wait ceiling.
var ErrNoClients = errors.New("no app-only twitter clients available")

type poolEntry struct {
	client        *client.TwitterXClient
	coolDownUntil time.Time
}

// ClientPool rotates a set of app-only clients round-robin, skipping entries
// that reported a rate limit until their reset instant passes. The cool-down
// table is the only shared mutable state between concurrently running
// searches and every acquire/report completes atomically.
type ClientPool struct {
	entries []*poolEntry
	index   int
	maxWait time.Duration // 0 means wait indefinitely
	mutex   sync.Mutex
}

// NewClientPool wraps the given clients. maxWait bounds how long Acquire may
// block waiting for a cool-down to expire; zero keeps the historical
// wait-forever behavior.
func NewClientPool(clients []*client.TwitterXClient, maxWait time.Duration) *ClientPool {
	entries := make([]*poolEntry, 0, len(clients))
	for _, c := range clients {
		entries = append(entries, &poolEntry{client: c})
	}
	return &ClientPool{entries: entries, maxWait: maxWait}
}

// Size returns the number of pooled clients.
func (p *ClientPool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.entries)
}

// Acquire returns the next client whose cool-down has elapsed, advancing the
// round-robin cursor past it. When every client is cooling down it sleeps
// until the earliest reset and rescans, until the context is done or the wait
// ceiling is exceeded.
func (p *ClientPool) Acquire(ctx context.Context) (*client.TwitterXClient, error) {
	deadline := time.Time{}
	if p.maxWait > 0 {
		deadline = time.Now().Add(p.maxWait)
	}

	for {
		c, earliest := p.tryAcquire()
		if c != nil {
			return c, nil
		}
		if earliest.IsZero() {
			return nil, ErrNoClients
		}
		if !deadline.IsZero() && earliest.After(deadline) {
			return nil, ErrNoClients
		}

		wait := time.Until(earliest)
		if wait > 0 {
			logrus.Warnf("all app-only twitter clients rate-limited, waiting %v", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

// tryAcquire scans one full cycle from the cursor. It returns either an
// eligible client, or the earliest cool-down expiry when none is eligible.
func (p *ClientPool) tryAcquire() (*client.TwitterXClient, time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.entries) == 0 {
		return nil, time.Time{}
	}

	now := time.Now()
	for i := 0; i < len(p.entries); i++ {
		entry := p.entries[p.index]
		p.index = (p.index + 1) % len(p.entries)
		if now.After(entry.coolDownUntil) {
			return entry.client, time.Time{}
		}
	}

	earliest := p.entries[0].coolDownUntil
	for _, entry := range p.entries[1:] {
		if entry.coolDownUntil.Before(earliest) {
			earliest = entry.coolDownUntil
		}
	}
	return nil, earliest
}

// ReportRateLimited records a cool-down for the given client; Acquire skips
// it until resetAt passes.
func (p *ClientPool) ReportRateLimited(c *client.TwitterXClient, resetAt time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, entry := range p.entries {
		if entry.client == c {
			entry.coolDownUntil = resetAt
			logrus.Infof("app-only twitter client cooling down until %v", resetAt.UTC())
			return
		}
	}
}
