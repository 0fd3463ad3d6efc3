package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/job"
	"github.com/periwatch/brief-api/internal/domain/model"
	apperrors "github.com/periwatch/brief-api/internal/errors"
	"github.com/periwatch/brief-api/internal/observability/metrics"
	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// DefaultTitle is used when a request carries no title.
const DefaultTitle = "Periwatch Report"

// GenerationServiceOptions groups dependencies for GenerationService.
type GenerationServiceOptions struct {
	Registry      core.JobRegistry     // Required: job records
	Renderer      core.Renderer        // Required: content renderer
	Supervisor    *DeadlineSupervisor  // Required: deadline race
	Continuations *ContinuationTracker // Required: background continuations
	Retention     *RetentionService    // Required: cleanup operation
	Policy        *job.DeadlinePolicy  // Optional: nil uses requested deadlines as-is
	Logger        *slog.Logger         // Optional: structured logger
	Metrics       statsd.Sink          // Optional: metrics sink
}

// GenerationService answers generation requests within a bounded deadline and
// exposes job status and cleanup.
type GenerationService struct {
	registry      core.JobRegistry
	renderer      core.Renderer
	supervisor    *DeadlineSupervisor
	continuations *ContinuationTracker
	retention     *RetentionService
	policy        *job.DeadlinePolicy
	logger        *slog.Logger
	metrics       statsd.Sink
}

// NewGenerationService constructs a GenerationService.
func NewGenerationService(opts GenerationServiceOptions) (*GenerationService, error) {
	switch {
	case opts.Registry == nil:
		return nil, errors.New("job registry is required")
	case opts.Renderer == nil:
		return nil, errors.New("renderer is required")
	case opts.Supervisor == nil:
		return nil, errors.New("deadline supervisor is required")
	case opts.Continuations == nil:
		return nil, errors.New("continuation tracker is required")
	case opts.Retention == nil:
		return nil, errors.New("retention service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		registry:      opts.Registry,
		renderer:      opts.Renderer,
		supervisor:    opts.Supervisor,
		continuations: opts.Continuations,
		retention:     opts.Retention,
		policy:        opts.Policy,
		logger:        logger.With("component", "generation_service"),
		metrics:       opts.Metrics,
	}, nil
}

// Generate creates a job and returns within the resolved deadline.
//
// The only error returned is a validation error for bad input; every other
// problem is reported through the result status.
func (s *GenerationService) Generate(ctx context.Context, params model.GenerateParams) (model.GenerateResult, error) {
	start := time.Now()

	params, err := normalizeParams(params)
	if err != nil {
		return model.GenerateResult{}, err
	}
	decision := s.policy.Resolve(params.Deadline)
	params.Deadline = decision.Deadline

	created, err := s.registry.Create(params)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not create job", "error", err)
		result := model.GenerateResult{Status: model.ResponseFailed, Error: "could not create job"}
		s.emit(result, start, err)
		return result, nil
	}

	s.logger.InfoContext(ctx, "generation started",
		"job_id", created.ID,
		"deadline", decision.Deadline,
		"deadline_source", decision.Source,
	)

	sup := s.supervisor.Execute(ctx, created, s.renderer, decision.Deadline)
	result := model.GenerateResult{TaskID: created.ID, Filename: params.Filename()}

	switch sup.Outcome {
	case model.OutcomeCompleted:
		result.Status = model.ResponseCompleted
		result.Artifact = sup.Artifact
	case model.OutcomeFailed:
		result.Status = model.ResponseFailed
		result.Error = sup.Err.Error()
	default:
		if sup.Continue && !s.continuations.Continue(sup.Job, sup.Worker) {
			s.logger.ErrorContext(ctx, "background continuation was not started",
				"job_id", created.ID,
				"stage", model.StageContinuation,
			)
		}
		if sup.Artifact != nil {
			result.Status = model.ResponsePartial
			result.Artifact = sup.Artifact
			result.Message = model.PartialMessage
		} else {
			result.Status = model.ResponseAccepted
			result.Message = model.AcceptedMessage
		}
	}

	s.emit(result, start, sup.Err)
	return result, nil
}

func (s *GenerationService) emit(result model.GenerateResult, start time.Time, err error) {
	metrics.EmitGenerateOutcome(s.metrics, metrics.GenerateOutcome{
		Response: string(result.Status),
		Duration: time.Since(start),
		Err:      err,
	})
}

// GetStatus returns the public view of a job, or a not found error.
func (s *GenerationService) GetStatus(_ context.Context, id string) (model.JobStatusView, error) {
	j, ok := s.registry.Get(strings.TrimSpace(id))
	if !ok {
		return model.JobStatusView{}, apperrors.NotFoundf("task %q not found", id)
	}
	return j.View(), nil
}

// Cleanup removes job records older than maxAge.
func (s *GenerationService) Cleanup(ctx context.Context, maxAge time.Duration) (model.CleanupResult, error) {
	return s.retention.Cleanup(ctx, maxAge, TriggerManual)
}

func normalizeParams(p model.GenerateParams) (model.GenerateParams, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = DefaultTitle
	}

	p.Recipient = strings.TrimSpace(p.Recipient)
	if p.Recipient == "" {
		return p, apperrors.ValidationField("email", "email is required")
	}
	addr, err := mail.ParseAddress(p.Recipient)
	if err != nil {
		return p, apperrors.ValidationField("email", "email is not a valid address")
	}
	p.Recipient = addr.Address

	p.Content.Ticker = strings.TrimSpace(p.Content.Ticker)
	p.Content.Company = strings.TrimSpace(p.Content.Company)
	return p, nil
}
