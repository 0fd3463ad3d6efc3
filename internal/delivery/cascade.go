package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/periwatch/brief-api/internal/observability/metrics"
	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// CascadeOptions configures a Cascade.
type CascadeOptions struct {
	Providers []Provider  // Required: tried strictly in order
	Logger    *slog.Logger
	Metrics   statsd.Sink // Optional
}

// Cascade sends a message through the first provider that accepts it.
// It holds no per-call state and is safe for concurrent use.
type Cascade struct {
	providers []Provider
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewCascade constructs a Cascade. Nil providers are skipped.
func NewCascade(opts CascadeOptions) *Cascade {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	providers := make([]Provider, 0, len(opts.Providers))
	for _, p := range opts.Providers {
		if p != nil {
			providers = append(providers, p)
		}
	}
	return &Cascade{
		providers: providers,
		logger:    logger.With("component", "delivery_cascade"),
		metrics:   opts.Metrics,
	}
}

// Providers returns the configured provider names in order.
func (c *Cascade) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Send attempts each provider once, in order, and stops at the first success.
// When every provider fails it returns *ExhaustedError carrying all attempts.
func (c *Cascade) Send(ctx context.Context, msg Message) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, ErrNoProviders
	}

	attempts := make([]Attempt, 0, len(c.providers))
	for _, p := range c.providers {
		name := p.Name()
		start := time.Now()
		err := sendRecovered(ctx, p, msg)
		elapsed := time.Since(start)

		if err == nil {
			attempts = append(attempts, Attempt{Provider: name, Outcome: OutcomeSent})
			metrics.EmitDeliveryAttempt(c.metrics, metrics.DeliveryAttempt{
				Provider: name, Result: metrics.ResultSuccess, Duration: elapsed,
			})
			c.logger.InfoContext(ctx, "delivery succeeded",
				"provider", name,
				"recipient", msg.To,
				"attempt", len(attempts),
				"duration_ms", elapsed.Milliseconds(),
			)
			return Result{Provider: name, Attempts: attempts}, nil
		}

		kind := KindOf(err)
		attempts = append(attempts, Attempt{Provider: name, Outcome: OutcomeFailed, Kind: kind, Err: err})
		metrics.EmitDeliveryAttempt(c.metrics, metrics.DeliveryAttempt{
			Provider: name, Result: metrics.ResultError, Kind: string(kind), Duration: elapsed,
		})
		c.logger.WarnContext(ctx, "delivery provider failed, trying next",
			"provider", name,
			"recipient", msg.To,
			"kind", kind,
			"error", err,
		)
	}

	return Result{Attempts: attempts}, &ExhaustedError{Attempts: attempts}
}

func sendRecovered(ctx context.Context, p Provider, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewProviderError(p.Name(), KindUnknown, fmt.Errorf("provider panic: %v", r))
		}
	}()
	err = p.Send(ctx, msg)
	if err == nil {
		return nil
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		err = NewProviderError(p.Name(), KindUnknown, err)
	}
	return err
}
