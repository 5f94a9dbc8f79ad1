package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry stores a cached payload with the time it was written.
type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is a bounded LRU cache whose entries read as absent once they are
// TTL old. Stale entries are not deleted on read; they stay until the next
// Put for the same key overwrites them or LRU eviction displaces them.
// Safe for concurrent use.
type TTL[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	items *lru.Cache[string, entry[V]]
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache holding at most size entries, each fresh for ttl.
func New[V any](size int, ttl time.Duration, opts ...Option) (*TTL[V], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache: ttl must be positive, got %s", ttl)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	items, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &TTL[V]{ttl: ttl, now: o.now, items: items}, nil
}

// Get returns the value for key only while now - storedAt < TTL.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.items.Get(key)
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return zero, false
	}
	return e.value, true
}

// Put overwrites any entry for key with v stamped at the current time.
func (c *TTL[V]) Put(key string, v V) {
	c.items.Add(key, entry[V]{value: v, storedAt: c.now()})
}

// Stale returns the entry for key regardless of its age.
func (c *TTL[V]) Stale(key string) (V, time.Time, bool) {
	var zero V
	e, ok := c.items.Peek(key)
	if !ok {
		return zero, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Len reports the number of stored entries, fresh or stale.
func (c *TTL[V]) Len() int { return c.items.Len() }

// TTL returns the configured freshness window.
func (c *TTL[V]) TTL() time.Duration { return c.ttl }
