package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"econdash/internal/network"
	"econdash/internal/provider"
	"econdash/internal/provider/cache"
)

var (
	// ErrNoSymbols is returned when the request names no symbols.
	ErrNoSymbols = errors.New("symbols cannot be empty")
	// ErrTooManySymbols is returned when the request exceeds Config.MaxSymbols.
	ErrTooManySymbols = errors.New("too many symbols")
	// ErrBatchTimeout marks symbols still unresolved when the batch deadline expired.
	ErrBatchTimeout = errors.New("batch deadline exceeded")
)

// Config bounds one coordinator.
type Config struct {
	MaxSymbols     int
	MaxConcurrency int
	FetchTimeout   time.Duration
	BatchTimeout   time.Duration
}

// DefaultConfig returns the limits used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		MaxSymbols:     50,
		MaxConcurrency: 8,
		FetchTimeout:   10 * time.Second,
		BatchTimeout:   20 * time.Second,
	}
}

// Coordinator resolves a batch of symbols against one upstream, serving
// fresh entries from its cache and fetching the rest concurrently.
type Coordinator struct {
	fetcher provider.Fetcher
	cache   *cache.TTL[json.RawMessage]
	cfg     Config
	mode    *network.Mode
	log     zerolog.Logger

	group singleflight.Group
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger; the default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithMode lets corporate network mode answer failed symbols from stale entries.
func WithMode(m *network.Mode) Option {
	return func(c *Coordinator) { c.mode = m }
}

// New creates a coordinator over f that owns c.
func New(f provider.Fetcher, c *cache.TTL[json.RawMessage], cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = def.MaxSymbols
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	co := &Coordinator{fetcher: f, cache: c, cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(co)
	}
	co.log = co.log.With().Str("upstream", f.Name()).Logger()
	return co
}

// Name returns the upstream name.
func (c *Coordinator) Name() string { return c.fetcher.Name() }

// MaxSymbols returns the per-batch symbol limit.
func (c *Coordinator) MaxSymbols() int { return c.cfg.MaxSymbols }

// Normalize trims symbols, drops empties and duplicates, keeping first-seen order.
func Normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FetchAll returns exactly one Result per normalized symbol. It fails only for
// invalid input or when ctx is already done; upstream failures are reported
// per symbol. When the batch deadline expires, finished symbols keep their
// results and the rest fail with ErrBatchTimeout; if ctx ends first they fail
// with ctx's cause instead.
func (c *Coordinator) FetchAll(ctx context.Context, symbols []string) (map[string]Result, error) {
	syms := Normalize(symbols)
	if len(syms) == 0 {
		return nil, ErrNoSymbols
	}
	if len(syms) > c.cfg.MaxSymbols {
		return nil, fmt.Errorf("%w: %d requested, max %d", ErrTooManySymbols, len(syms), c.cfg.MaxSymbols)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]Result, len(syms))
	toFetch := make([]string, 0, len(syms))
	for _, s := range syms {
		if data, ok := c.cache.Get(s); ok {
			out[s] = Result{Symbol: s, Data: data, Cached: true}
			continue
		}
		toFetch = append(toFetch, s)
	}
	c.log.Debug().
		Int("requested", len(syms)).
		Int("cached", len(out)).
		Int("to_fetch", len(toFetch)).
		Msg("batch partitioned")
	if len(toFetch) == 0 {
		return out, nil
	}

	// The cause tells a batch deadline apart from the caller going away.
	batchCtx, cancel := context.WithTimeoutCause(ctx, c.cfg.BatchTimeout, ErrBatchTimeout)
	defer cancel()

	// Buffered so late fetches never block after we stop collecting.
	results := make(chan Result, len(toFetch))
	go func() {
		var g errgroup.Group
		g.SetLimit(c.cfg.MaxConcurrency)
		for _, s := range toFetch {
			g.Go(func() error {
				results <- c.fetchOne(batchCtx, s)
				return nil
			})
		}
		_ = g.Wait()
	}()

collect:
	for pending := len(toFetch); pending > 0; pending-- {
		select {
		case r := <-results:
			out[r.Symbol] = r
		case <-batchCtx.Done():
			break collect
		}
	}

	if len(out) < len(syms) {
	drain:
		for {
			select {
			case r := <-results:
				out[r.Symbol] = r
			default:
				break drain
			}
		}
		cause := context.Cause(batchCtx)
		var unresolved int
		for _, s := range toFetch {
			if _, ok := out[s]; !ok {
				out[s] = c.failure(s, cause)
				unresolved++
			}
		}
		c.log.Warn().
			Err(cause).
			Int("unresolved", unresolved).
			Dur("batch_timeout", c.cfg.BatchTimeout).
			Msg("batch ended with unresolved symbols")
	}
	return out, nil
}

// Fetch resolves a single symbol through the same cache and coalescing path.
func (c *Coordinator) Fetch(ctx context.Context, symbol string) (Result, error) {
	res, err := c.FetchAll(ctx, []string{symbol})
	if err != nil {
		return Result{}, err
	}
	return res[strings.TrimSpace(symbol)], nil
}

// fetchOne performs a coalesced upstream call for symbol. The upstream call is
// detached from the caller's cancellation and bounded by FetchTimeout, so a
// caller giving up does not fail other callers sharing the call.
func (c *Coordinator) fetchOne(ctx context.Context, symbol string) Result {
	if ctx.Err() != nil {
		return c.failure(symbol, context.Cause(ctx))
	}

	ch := c.group.DoChan(symbol, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
		defer cancel()

		start := time.Now()
		data, err := c.fetcher.Fetch(fctx, symbol)
		if err != nil {
			return nil, err
		}
		c.cache.Put(symbol, data)
		c.log.Debug().Str("symbol", symbol).Dur("took", time.Since(start)).Msg("fetched")
		return data, nil
	})

	select {
	case <-ctx.Done():
		return c.failure(symbol, context.Cause(ctx))
	case res := <-ch:
		if res.Err != nil {
			c.log.Warn().Err(res.Err).Str("symbol", symbol).Msg("upstream fetch failed")
			return c.failure(symbol, res.Err)
		}
		return Result{Symbol: symbol, Data: res.Val.(json.RawMessage)}
	}
}

// failure records err for symbol, or in corporate mode answers from the cache.
// An entry refreshed by a concurrent call since the batch started is served
// as fresh.
func (c *Coordinator) failure(symbol string, err error) Result {
	if c.mode != nil && c.mode.Degraded() {
		if data, ok := c.cache.Get(symbol); ok {
			return Result{Symbol: symbol, Data: data, Cached: true}
		}
		if data, storedAt, ok := c.cache.Stale(symbol); ok {
			c.log.Info().
				Str("symbol", symbol).
				Time("stored_at", storedAt).
				Msg("serving stale entry in corporate network mode")
			return Result{Symbol: symbol, Data: data, Cached: true, Stale: true}
		}
	}
	return Result{Symbol: symbol, Err: err.Error()}
}
