package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"econdash/internal/provider"
)

// TokenBucket admits rate calls per second with bursts up to capacity.
// Callers reserve a token up front, so waiters are served in arrival order;
// a reservation abandoned through ctx is returned to the bucket.
type TokenBucket struct {
	rate     float64
	capacity float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64 // negative while reservations are outstanding
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 1e-7
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		now:      time.Now,
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// reserve takes one token and returns how long until it is backed.
func (tb *TokenBucket) reserve() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if dt := now.Sub(tb.last).Seconds(); dt > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+dt*tb.rate)
		tb.last = now
	}
	tb.tokens--
	if tb.tokens >= 0 {
		return 0
	}
	return time.Duration(-tb.tokens / tb.rate * float64(time.Second))
}

func (tb *TokenBucket) release() {
	tb.mu.Lock()
	tb.tokens = min(tb.capacity, tb.tokens+1)
	tb.mu.Unlock()
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	d := tb.reserve()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		tb.release()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBucketFetcher gates a Fetcher with a token bucket.
type TokenBucketFetcher struct {
	F  provider.Fetcher
	TB *TokenBucket
}

func (t *TokenBucketFetcher) Name() string { return t.F.Name() }

func (t *TokenBucketFetcher) Fetch(ctx context.Context, symbol string) (json.RawMessage, error) {
	if t.TB != nil {
		if err := t.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.F.Fetch(ctx, symbol)
}
