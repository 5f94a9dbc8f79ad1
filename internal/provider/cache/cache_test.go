package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"econdash/internal/provider/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestNew_RejectsInvalidArgs(t *testing.T) {
	t.Parallel()

	_, err := cache.New[string](10, 0)
	require.Error(t, err)

	_, err = cache.New[string](0, time.Minute)
	require.Error(t, err)
}

func TestGet_FreshWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newClock()
	c, err := cache.New[string](10, time.Minute, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("GDP", "payload")
	clock.Advance(59 * time.Second)

	v, ok := c.Get("GDP")
	require.True(t, ok)
	require.Equal(t, "payload", v)
}

func TestGet_ExpiredAtExactlyTTL(t *testing.T) {
	t.Parallel()

	clock := newClock()
	c, err := cache.New[string](10, time.Minute, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("GDP", "payload")
	clock.Advance(time.Minute)

	_, ok := c.Get("GDP")
	require.False(t, ok)

	// Stale entries are kept until overwritten.
	v, storedAt, ok := c.Stale("GDP")
	require.True(t, ok)
	require.Equal(t, "payload", v)
	require.Equal(t, clock.Now().Add(-time.Minute), storedAt)
	require.Equal(t, 1, c.Len())
}

func TestPut_OverwritesAndRestampsEntry(t *testing.T) {
	t.Parallel()

	clock := newClock()
	c, err := cache.New[string](10, time.Minute, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("AAPL", "old")
	clock.Advance(2 * time.Minute)
	c.Put("AAPL", "new")

	v, ok := c.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, "new", v)
	require.Equal(t, 1, c.Len())
}

func TestPut_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c, err := cache.New[int](2, time.Hour)
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	_, ok := c.Get("a") // a becomes most recently used
	require.True(t, ok)
	c.Put("c", 3)

	require.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	require.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestStale_MissingKey(t *testing.T) {
	t.Parallel()

	c, err := cache.New[string](2, time.Hour)
	require.NoError(t, err)

	_, _, ok := c.Stale("nope")
	require.False(t, ok)
	require.Equal(t, time.Hour, c.TTL())
}
