// Package warmup periodically prefetches a watchlist so dashboard defaults are
// answered from cache.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"econdash/internal/batch"
)

//go:generate mockgen -destination=mock_batcher_test.go -package=warmup_test econdash/internal/warmup Batcher

// Batcher is the part of batch.Coordinator a warm-up run needs.
type Batcher interface {
	Name() string
	MaxSymbols() int
	FetchAll(ctx context.Context, symbols []string) (map[string]batch.Result, error)
}

// Target pairs a coordinator with the symbols to keep warm.
type Target struct {
	Batcher Batcher
	Symbols []string
}

// Stats summarises one source of one run.
type Stats struct {
	Source    string
	Succeeded int
	Failed    int
	Err       error
}

type Job struct {
	targets []Target
	timeout time.Duration
	log     zerolog.Logger
	cron    *cron.Cron
}

type Option func(*Job)

func WithLogger(log zerolog.Logger) Option {
	return func(j *Job) { j.log = log }
}

// WithTimeout bounds a single run across all targets.
func WithTimeout(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

func New(targets []Target, opts ...Option) *Job {
	j := &Job{
		targets: targets,
		timeout: time.Minute,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(j)
	}
	j.log = j.log.With().Str("component", "warmup").Logger()
	return j
}

// Start schedules Run on a cron schedule and starts the scheduler. Overlapping runs are
// skipped.
func (j *Job) Start(schedule string) error {
	if j.cron != nil {
		return errors.New("warmup: already started")
	}
	cl := cronLogger{log: j.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(schedule, func() { j.Run(context.Background()) }); err != nil {
		return fmt.Errorf("warmup schedule %q: %w", schedule, err)
	}
	j.cron = c
	c.Start()
	j.log.Info().Str("schedule", schedule).Int("targets", len(j.targets)).Msg("warmup scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running job or ctx, whichever
// comes first.
func (j *Job) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		j.log.Warn().Msg("warmup still running at shutdown")
	}
}

// Run prefetches every target once and returns per-source counts.
func (j *Job) Run(ctx context.Context) []Stats {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	out := make([]Stats, 0, len(j.targets))
	for _, t := range j.targets {
		s := j.runTarget(ctx, t)
		ev := j.log.Info()
		if s.Err != nil {
			ev = j.log.Warn().Err(s.Err)
		}
		ev.Str("source", s.Source).Int("ok", s.Succeeded).Int("failed", s.Failed).Msg("warmup run")
		out = append(out, s)
	}
	j.log.Debug().Dur("took", time.Since(start)).Msg("warmup done")
	return out
}

func (j *Job) runTarget(ctx context.Context, t Target) Stats {
	s := Stats{Source: t.Batcher.Name()}
	symbols := batch.Normalize(t.Symbols)
	if len(symbols) == 0 {
		return s
	}
	for start := 0; start < len(symbols); start += t.Batcher.MaxSymbols() {
		end := min(start+t.Batcher.MaxSymbols(), len(symbols))
		res, err := t.Batcher.FetchAll(ctx, symbols[start:end])
		if err != nil {
			s.Err = err
			s.Failed += end - start
			continue
		}
		for _, r := range res {
			if r.Success() {
				s.Succeeded++
			} else {
				s.Failed++
			}
		}
	}
	return s
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
