// Package retention provides adapters for running scheduled retention sweeps.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/periwatch/brief-api/internal/domain/model"
	"github.com/periwatch/brief-api/internal/service"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cleaner removes job records older than maxAge.
type Cleaner interface {
	Cleanup(ctx context.Context, maxAge time.Duration, trigger string) (model.CleanupResult, error)
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Cleaner  Cleaner       // Required: retention service
	Schedule string        // Required: cron expression or descriptor
	MaxAge   time.Duration // Required: age beyond which records are removed
	Logger   *slog.Logger  // Optional
}

// Runner triggers retention sweeps on a cron schedule.
type Runner struct {
	cleaner  Cleaner
	schedule cron.Schedule
	spec     string
	maxAge   time.Duration
	logger   *slog.Logger
}

// ParseSchedule validates a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NewRunner creates a new retention runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Cleaner == nil {
		return nil, errors.New("cleaner is required")
	}
	if opts.MaxAge <= 0 {
		return nil, errors.New("max age must be positive")
	}
	schedule, err := ParseSchedule(opts.Schedule)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cleaner:  opts.Cleaner,
		schedule: schedule,
		spec:     opts.Schedule,
		maxAge:   opts.MaxAge,
		logger:   logger.With("component", "retention_runner"),
	}, nil
}

// Next returns the next activation time after t.
func (r *Runner) Next(t time.Time) time.Time {
	return r.schedule.Next(t)
}

// Run starts the cron loop and blocks until the context is cancelled.
// An in-progress sweep is allowed to finish before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	cl := cronLogger{logger: r.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(r.schedule, cron.FuncJob(func() { r.sweep(ctx) }))

	r.logger.InfoContext(ctx, "starting retention runner",
		"schedule", r.spec,
		"max_age", r.maxAge.String(),
		"next_run", r.Next(time.Now()).Format(time.RFC3339))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("retention runner stopped")
	return nil
}

func (r *Runner) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := r.cleaner.Cleanup(ctx, r.maxAge, service.TriggerSchedule)
	if err != nil {
		r.logger.ErrorContext(ctx, "scheduled retention sweep failed", "error", err)
		return
	}
	r.logger.DebugContext(ctx, "scheduled retention sweep finished", "removed", res.RemovedCount)
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
