package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
	apperrors "github.com/periwatch/brief-api/internal/errors"
	"github.com/periwatch/brief-api/internal/observability/metrics"
	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// Sweep triggers used for logging and metric tags.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Registry core.JobRegistry // Required: job records
	Logger   *slog.Logger     // Optional: structured logger
	Metrics  statsd.Sink      // Optional: metrics sink (StatsD-compatible)
}

// RetentionService removes job records older than a maximum age.
type RetentionService struct {
	registry core.JobRegistry
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRetentionService constructs a RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	if opts.Registry == nil {
		return nil, errors.New("job registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionService{
		registry: opts.Registry,
		logger:   logger.With("component", "retention_service"),
		metrics:  opts.Metrics,
	}, nil
}

// Cleanup deletes every job created more than maxAge before the registry's
// current time. It walks a snapshot of the registry keys and re-checks each
// record at deletion time, so concurrent inserts and updates are safe.
// Faults during the sweep are logged and swallowed; the count reflects what
// was removed before the fault.
func (s *RetentionService) Cleanup(ctx context.Context, maxAge time.Duration, trigger string) (res model.CleanupResult, err error) {
	if maxAge <= 0 {
		return model.CleanupResult{}, apperrors.ValidationField("hours", "max age must be positive")
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "retention sweep aborted",
				"stage", model.StageSweep,
				"removed", res.RemovedCount,
				"error", fmt.Errorf("sweep panic: %v", r),
			)
			err = nil
		}
		metrics.EmitRetention(s.metrics, metrics.Retention{
			Removed:  res.RemovedCount,
			Duration: time.Since(start),
			Trigger:  trigger,
		})
	}()

	now := s.registry.Now()
	expired := func(j model.Job) bool { return j.Age(now) > maxAge }

	for _, id := range s.registry.Keys() {
		if s.registry.DeleteIf(id, expired) {
			res.RemovedCount++
		}
	}

	s.emitActive()
	s.logger.InfoContext(ctx, "retention sweep finished",
		"trigger", trigger,
		"max_age", maxAge,
		"removed", res.RemovedCount,
	)
	return res, nil
}

func (s *RetentionService) emitActive() {
	if s.metrics == nil {
		return
	}
	counts := make(map[string]int)
	for _, id := range s.registry.Keys() {
		if j, ok := s.registry.Get(id); ok {
			counts[string(j.Status)]++
		}
	}
	metrics.EmitActiveJobs(s.metrics, counts)
}
