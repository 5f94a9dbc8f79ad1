package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	MaxBodyBytes      int64  `json:"max_body_bytes"`
}

type Log struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Batch bounds every coordinator.
type Batch struct {
	MaxSymbols      int `json:"max_symbols"`
	MaxConcurrency  int `json:"max_concurrency"`
	FetchTimeoutSec int `json:"fetch_timeout_sec"`
	BatchTimeoutSec int `json:"batch_timeout_sec"`
}

type FRED struct {
	Enabled               bool   `json:"enabled"`
	APIKey                string `json:"api_key"`
	Endpoint              string `json:"endpoint"`
	Limit                 int    `json:"limit"`
	SortOrder             string `json:"sort_order"`
	ObservationStart      string `json:"observation_start"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items"`
}

type Yahoo struct {
	Enabled               bool   `json:"enabled"`
	Endpoint              string `json:"endpoint"`
	Interval              string `json:"interval"`
	Range                 string `json:"range"`
	UserAgent             string `json:"user_agent"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items"`
}

// Network selects direct or corporate (degraded) mode at startup. ProxyURL,
// when set, overrides HTTP(S)_PROXY for upstream calls.
type Network struct {
	Mode     string `json:"mode"`
	ProxyURL string `json:"proxy_url"`
}

type Calendar struct {
	FOMCDates []string `json:"fomc_dates"`
}

// Warmup prefetches a watchlist on a cron schedule.
type Warmup struct {
	Enabled  bool     `json:"enabled"`
	Schedule string   `json:"schedule"`
	FRED     []string `json:"fred"`
	Yahoo    []string `json:"yahoo"`
}

type Config struct {
	Server   Server   `json:"server"`
	Log      Log      `json:"log"`
	Batch    Batch    `json:"batch"`
	FRED     FRED     `json:"fred"`
	Yahoo    Yahoo    `json:"yahoo"`
	Network  Network  `json:"network"`
	Calendar Calendar `json:"calendar"`
	Warmup   Warmup   `json:"warmup"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30, MaxBodyBytes: 1 << 20},
		Log:    Log{Level: "info"},
		Batch: Batch{
			MaxSymbols:      50,
			MaxConcurrency:  8,
			FetchTimeoutSec: 10,
			BatchTimeoutSec: 20,
		},
		FRED: FRED{
			Enabled:              true,
			Endpoint:             "https://api.stlouisfed.org/fred",
			SortOrder:            "asc",
			MaxRequestsPerMinute: 120,
			Burst:                10,
			CacheTTLSeconds:      600,
			CacheMaxItems:        2000,
		},
		Yahoo: Yahoo{
			Enabled:         true,
			Endpoint:        "https://query1.finance.yahoo.com",
			Interval:        "1d",
			Range:           "1mo",
			CacheTTLSeconds: 60,
			CacheMaxItems:   2000,
		},
		Network: Network{Mode: "direct"},
		Warmup: Warmup{
			Enabled:  false,
			Schedule: "@every 5m",
			FRED:     []string{"GDP", "UNRATE", "CPIAUCSL", "FEDFUNDS", "DGS10"},
			Yahoo:    []string{"^GSPC", "^DJI", "^IXIC", "^VIX"},
		},
	}
}

// Load reads JSON config from path. If path is empty, ./config.json is used
// when present; a missing file yields defaults. A .env file in the working
// directory is loaded first, then environment variables override fields.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values the server cannot start without.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Batch.MaxSymbols <= 0 {
		return fmt.Errorf("batch.max_symbols must be positive, got %d", c.Batch.MaxSymbols)
	}
	if c.FRED.Enabled && c.FRED.CacheTTLSeconds <= 0 {
		return errors.New("fred.cache_ttl_sec must be positive")
	}
	if c.Yahoo.Enabled && c.Yahoo.CacheTTLSeconds <= 0 {
		return errors.New("yahoo.cache_ttl_sec must be positive")
	}
	switch strings.ToLower(c.Network.Mode) {
	case "", "direct", "corporate":
	default:
		return fmt.Errorf("network.mode must be direct or corporate, got %q", c.Network.Mode)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.RequestTimeoutSec, "REQUEST_TIMEOUT_SEC", 1)
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setBool(&cfg.Log.Pretty, "LOG_PRETTY")

	setInt(&cfg.Batch.MaxSymbols, "BATCH_MAX_SYMBOLS", 1)
	setInt(&cfg.Batch.MaxConcurrency, "BATCH_MAX_CONCURRENCY", 1)
	setInt(&cfg.Batch.FetchTimeoutSec, "BATCH_FETCH_TIMEOUT_SEC", 1)
	setInt(&cfg.Batch.BatchTimeoutSec, "BATCH_TIMEOUT_SEC", 1)

	setBool(&cfg.FRED.Enabled, "FRED_ENABLED")
	setString(&cfg.FRED.APIKey, "FRED_API_KEY")
	setString(&cfg.FRED.Endpoint, "FRED_ENDPOINT")
	setInt(&cfg.FRED.Limit, "FRED_LIMIT", 0)
	setString(&cfg.FRED.ObservationStart, "FRED_OBSERVATION_START")
	setInt(&cfg.FRED.MaxRequestsPerMinute, "FRED_MAX_RPM", 0)
	setInt(&cfg.FRED.MinRequestIntervalSec, "FRED_MIN_INTERVAL_SEC", 0)
	setInt(&cfg.FRED.Burst, "FRED_BURST", 1)
	setInt(&cfg.FRED.CacheTTLSeconds, "FRED_CACHE_TTL_SEC", 1)
	setInt(&cfg.FRED.CacheMaxItems, "FRED_CACHE_MAX_ITEMS", 1)

	setBool(&cfg.Yahoo.Enabled, "YAHOO_ENABLED")
	setString(&cfg.Yahoo.Endpoint, "YAHOO_ENDPOINT")
	setString(&cfg.Yahoo.Interval, "YAHOO_INTERVAL")
	setString(&cfg.Yahoo.Range, "YAHOO_RANGE")
	setString(&cfg.Yahoo.UserAgent, "YAHOO_USER_AGENT")
	setInt(&cfg.Yahoo.MaxRequestsPerMinute, "YAHOO_MAX_RPM", 0)
	setInt(&cfg.Yahoo.MinRequestIntervalSec, "YAHOO_MIN_INTERVAL_SEC", 0)
	setInt(&cfg.Yahoo.Burst, "YAHOO_BURST", 1)
	setInt(&cfg.Yahoo.CacheTTLSeconds, "YAHOO_CACHE_TTL_SEC", 1)
	setInt(&cfg.Yahoo.CacheMaxItems, "YAHOO_CACHE_MAX_ITEMS", 1)

	setString(&cfg.Network.Mode, "NETWORK_MODE")
	setString(&cfg.Network.ProxyURL, "NETWORK_PROXY_URL")

	setBool(&cfg.Warmup.Enabled, "WARMUP_ENABLED")
	setString(&cfg.Warmup.Schedule, "WARMUP_SCHEDULE")
	if v := os.Getenv("WARMUP_FRED"); v != "" {
		cfg.Warmup.FRED = SplitCSV(v)
	}
	if v := os.Getenv("WARMUP_YAHOO"); v != "" {
		cfg.Warmup.Yahoo = SplitCSV(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt applies key when it parses to an int >= min.
func setInt(dst *int, key string, min int) {
	if v := os.Getenv(key); v != "" {
		if x, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && x >= min {
			*dst = x
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y":
			*dst = true
		case "0", "false", "no", "n":
			*dst = false
		}
	}
}

// SplitCSV splits on commas, trimming and dropping empty parts.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
