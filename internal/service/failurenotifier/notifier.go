package failurenotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/periwatch/brief-api/internal/domain/model"
	"github.com/periwatch/brief-api/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{Name: name, Sink: entry.Sink})
	}

	return &Service{
		logger: logger.With("component", "failure_notifier"),
		sinks:  sinks,
	}
}

// NotifyJobFailure fans the payload out to all sinks and waits for them.
// Sink errors are logged, never returned.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}

	if payload.Severity == "" {
		payload.Severity = severityFor(payload.Stage)
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendJobFailure(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"stage", payload.Stage,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}

// Render failures mean the report never existed. Delivery exhaustion means the
// report exists but the recipient did not get it, which an operator can resend.
func severityFor(stage string) string {
	if stage == model.StageDeliver {
		return notify.SeverityWarning
	}
	return notify.SeverityCritical
}
