// Command fetch resolves one batch against FRED or Yahoo through the same
// coordinator the server uses and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"econdash/internal/aggregate"
	"econdash/internal/app"
	"econdash/internal/batch"
	"econdash/internal/config"
	"econdash/internal/network"
	"econdash/pkg/logger"
)

func main() {
	var (
		source     string
		symbolsCSV string
		summary    bool
		timeout    int
		configPath string
		verbose    bool
	)
	flag.StringVar(&source, "source", "yahoo", "upstream: fred or yahoo")
	flag.StringVar(&symbolsCSV, "symbols", "", "comma-separated symbols or series IDs")
	flag.BoolVar(&summary, "summary", false, "print latest-value cards instead of raw documents")
	flag.IntVar(&timeout, "timeout", 30, "overall timeout seconds")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Out: os.Stderr})

	symbols := config.SplitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal().Msg("no symbols provided; use -symbols")
	}

	mode, err := network.NewMode(cfg.Network.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("network mode")
	}
	hc, err := app.HTTPClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("http client")
	}
	up, err := app.Build(cfg, hc, mode, log)
	if err != nil {
		log.Fatal().Err(err).Msg("upstreams")
	}

	var (
		co    *batch.Coordinator
		parse aggregate.Parser
	)
	switch strings.ToLower(source) {
	case "fred":
		co, parse = up.FRED, aggregate.FREDLatest
	case "yahoo":
		co, parse = up.Yahoo, aggregate.YahooLatest
	default:
		log.Fatal().Str("source", source).Msg("unknown source; want fred or yahoo")
	}
	if co == nil {
		log.Fatal().Str("source", source).Msg("source disabled; check config and API keys")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	start := time.Now()
	res, err := co.FetchAll(ctx, symbols)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch")
	}
	var failed int
	for _, r := range res {
		if !r.Success() {
			failed++
		}
	}
	log.Info().
		Str("source", co.Name()).
		Int("symbols", len(res)).
		Int("failed", failed).
		Dur("took", time.Since(start)).
		Msg("batch done")

	var out any = res
	if summary {
		out = aggregate.Summarize(res, parse)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode")
	}
	fmt.Println(string(b))
	if failed == len(res) {
		os.Exit(1)
	}
}
