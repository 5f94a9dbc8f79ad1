package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"econdash/internal/provider"
)

// MinInterval wraps a fetcher and enforces a minimum time between upstream calls.
// A caller only claims the gate once the interval since the last admitted call
// has elapsed, so callers that give up while waiting leave nothing behind.
type MinInterval struct {
	F        provider.Fetcher
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.F.Name() }

func (m *MinInterval) Fetch(ctx context.Context, symbol string) (json.RawMessage, error) {
	if m.Interval > 0 {
		if err := m.admit(ctx); err != nil {
			return nil, err
		}
	}
	return m.F.Fetch(ctx, symbol)
}

func (m *MinInterval) admit(ctx context.Context) error {
	for {
		m.mu.Lock()
		now := time.Now()
		wait := m.last.Add(m.Interval).Sub(now)
		if wait <= 0 {
			m.last = now
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Limits describes the rate limiting applied to one upstream.
type Limits struct {
	MaxRequestsPerMinute int
	Burst                int
	MinInterval          time.Duration
}

// Wrap decorates f with a token bucket when MaxRequestsPerMinute is set,
// otherwise with a min-interval gate, otherwise returns f unchanged.
func Wrap(f provider.Fetcher, l Limits) provider.Fetcher {
	if l.MaxRequestsPerMinute > 0 {
		rate := float64(l.MaxRequestsPerMinute) / 60.0
		return &TokenBucketFetcher{F: f, TB: NewTokenBucket(rate, l.Burst)}
	}
	if l.MinInterval > 0 {
		return &MinInterval{F: f, Interval: l.MinInterval}
	}
	return f
}
