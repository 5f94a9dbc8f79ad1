package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"econdash/internal/app"
	"econdash/internal/calendar"
	"econdash/internal/config"
	"econdash/internal/network"
	"econdash/internal/warmup"
	"econdash/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		l := logger.New(logger.Config{Level: "info"})
		l.Fatal().Err(err).Msg("config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	mode, err := network.NewMode(cfg.Network.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("network mode")
	}

	httpClient, err := app.HTTPClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("http client")
	}
	up, err := app.Build(cfg, httpClient, mode, log)
	if err != nil {
		log.Fatal().Err(err).Msg("upstreams")
	}

	fomc := cfg.Calendar.FOMCDates
	if len(fomc) == 0 {
		fomc = calendar.DefaultFOMC
	}
	cal, err := calendar.New(fomc)
	if err != nil {
		log.Fatal().Err(err).Msg("calendar")
	}
	if last, ok := cal.LastFOMC(); !ok || last.Year() < time.Now().Year() {
		log.Warn().
			Time("last_fomc", last).
			Msg("no FOMC dates for the current year or later; set calendar.fomc_dates")
	}

	var job *warmup.Job
	if cfg.Warmup.Enabled {
		var targets []warmup.Target
		if up.FRED != nil && len(cfg.Warmup.FRED) > 0 {
			targets = append(targets, warmup.Target{Batcher: up.FRED, Symbols: cfg.Warmup.FRED})
		}
		if up.Yahoo != nil && len(cfg.Warmup.Yahoo) > 0 {
			targets = append(targets, warmup.Target{Batcher: up.Yahoo, Symbols: cfg.Warmup.Yahoo})
		}
		job = warmup.New(targets, warmup.WithLogger(log))
		if err := job.Start(cfg.Warmup.Schedule); err != nil {
			log.Fatal().Err(err).Msg("warmup")
		}
		// Fill the cache right away rather than waiting a full interval.
		go job.Run(context.Background())
	}

	s := &server{
		fred:    up.FRED,
		yahoo:   up.Yahoo,
		mode:    mode,
		cal:     cal,
		log:     log.With().Str("component", "server").Logger(),
		maxBody: cfg.Server.MaxBodyBytes,
		now:     time.Now,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.Batch.BatchTimeoutSec+10) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Bool("fred", up.FRED != nil).
			Bool("yahoo", up.Yahoo != nil).
			Str("network", mode.String()).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if job != nil {
		job.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
