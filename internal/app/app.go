// Package app assembles upstream coordinators from configuration. Both the
// server and the fetch CLI build their data path here.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"econdash/internal/batch"
	"econdash/internal/config"
	"econdash/internal/httpx"
	"econdash/internal/network"
	"econdash/internal/provider"
	"econdash/internal/provider/cache"
	"econdash/internal/provider/fred"
	"econdash/internal/provider/ratelimit"
	"econdash/internal/provider/yahoo"
)

// Upstreams holds one coordinator per enabled source; a disabled source is nil.
type Upstreams struct {
	FRED  *batch.Coordinator
	Yahoo *batch.Coordinator
}

// HTTPClient builds the shared upstream client, routed through the
// configured proxy if any.
func HTTPClient(cfg config.Config) (*httpx.Client, error) {
	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	if err := hc.UseProxy(cfg.Network.ProxyURL); err != nil {
		return nil, err
	}
	return hc, nil
}

// BatchConfig converts the configured limits.
func BatchConfig(c config.Batch) batch.Config {
	return batch.Config{
		MaxSymbols:     c.MaxSymbols,
		MaxConcurrency: c.MaxConcurrency,
		FetchTimeout:   time.Duration(c.FetchTimeoutSec) * time.Second,
		BatchTimeout:   time.Duration(c.BatchTimeoutSec) * time.Second,
	}
}

// Build creates coordinators for every enabled upstream. FRED without an API
// key is disabled with a warning rather than failing startup.
func Build(cfg config.Config, hc *httpx.Client, mode *network.Mode, log zerolog.Logger) (Upstreams, error) {
	var up Upstreams
	bcfg := BatchConfig(cfg.Batch)

	if cfg.FRED.Enabled {
		q := url.Values{}
		if cfg.FRED.Limit > 0 {
			q.Set("limit", strconv.Itoa(cfg.FRED.Limit))
		}
		q.Set("sort_order", cfg.FRED.SortOrder)
		q.Set("observation_start", cfg.FRED.ObservationStart)

		client, err := fred.NewFREDClient(cfg.FRED.APIKey,
			fred.WithBaseURL(cfg.FRED.Endpoint),
			fred.WithHTTPClient(hc),
			fred.WithQuery(q),
		)
		switch {
		case errors.Is(err, fred.ErrMissingAPIKey):
			log.Warn().Msg("fred.enabled=true but FRED_API_KEY not set; FRED routes disabled")
		case err != nil:
			return up, fmt.Errorf("fred client: %w", err)
		default:
			co, err := coordinator(client, limits(cfg.FRED.MaxRequestsPerMinute, cfg.FRED.Burst, cfg.FRED.MinRequestIntervalSec),
				cfg.FRED.CacheMaxItems, cfg.FRED.CacheTTLSeconds, bcfg, mode, log)
			if err != nil {
				return up, fmt.Errorf("fred: %w", err)
			}
			up.FRED = co
		}
	}

	if cfg.Yahoo.Enabled {
		opts := []yahoo.ChartClientOption{
			yahoo.WithBaseURL(cfg.Yahoo.Endpoint),
			yahoo.WithHTTPClient(hc),
			yahoo.WithWindow(cfg.Yahoo.Interval, cfg.Yahoo.Range),
		}
		if cfg.Yahoo.UserAgent != "" {
			opts = append(opts, yahoo.WithHeader(http.Header{"User-Agent": []string{cfg.Yahoo.UserAgent}}))
		}
		co, err := coordinator(yahoo.NewChartClient(opts...), limits(cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.Burst, cfg.Yahoo.MinRequestIntervalSec),
			cfg.Yahoo.CacheMaxItems, cfg.Yahoo.CacheTTLSeconds, bcfg, mode, log)
		if err != nil {
			return up, fmt.Errorf("yahoo: %w", err)
		}
		up.Yahoo = co
	}
	return up, nil
}

func limits(rpm, burst, minIntervalSec int) ratelimit.Limits {
	return ratelimit.Limits{
		MaxRequestsPerMinute: rpm,
		Burst:                burst,
		MinInterval:          time.Duration(minIntervalSec) * time.Second,
	}
}

func coordinator(f provider.Fetcher, l ratelimit.Limits, size, ttlSec int, bcfg batch.Config, mode *network.Mode, log zerolog.Logger) (*batch.Coordinator, error) {
	c, err := cache.New[json.RawMessage](size, time.Duration(ttlSec)*time.Second)
	if err != nil {
		return nil, err
	}
	return batch.New(ratelimit.Wrap(f, l), c, bcfg,
		batch.WithLogger(log.With().Str("component", "batch").Logger()),
		batch.WithMode(mode),
	), nil
}
