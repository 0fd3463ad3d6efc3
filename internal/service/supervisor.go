package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
)

var errNotRunning = errors.New("job is no longer running")

// DeadlineSupervisorOptions groups dependencies for DeadlineSupervisor.
type DeadlineSupervisorOptions struct {
	Registry    core.JobRegistry // Required: job records
	Synthesizer core.Synthesizer // Required: placeholder builder
	Compressor  core.Compressor  // Optional: nil disables compression
	Quality     int              // Lossy quality passed to the compressor
	// CompressPlaceholder also runs the compressor over placeholder artifacts.
	CompressPlaceholder bool
	Logger              *slog.Logger
}

// DeadlineSupervisor races a generation worker against a deadline and records
// the initial outcome on the job. It never returns an error: internal faults
// degrade to a timed out outcome with a placeholder.
type DeadlineSupervisor struct {
	registry            core.JobRegistry
	synthesizer         core.Synthesizer
	compressor          core.Compressor
	quality             int
	compressPlaceholder bool
	logger              *slog.Logger
}

// Supervision is the result of one Execute call.
type Supervision struct {
	Outcome model.Outcome
	// Artifact is the full artifact for OutcomeCompleted and the placeholder
	// (possibly nil) for OutcomeTimedOut.
	Artifact *model.Artifact
	// Err is the render error for OutcomeFailed.
	Err error
	// Job is the record as last written by the supervisor.
	Job model.Job
	// Worker is the still running generation for OutcomeTimedOut.
	Worker *Worker
	// Continue is true when the job moved to TimedOutBackground and now needs
	// exactly one background continuation.
	Continue bool
}

// NewDeadlineSupervisor constructs a DeadlineSupervisor.
func NewDeadlineSupervisor(opts DeadlineSupervisorOptions) (*DeadlineSupervisor, error) {
	if opts.Registry == nil {
		return nil, errors.New("job registry is required")
	}
	if opts.Synthesizer == nil {
		return nil, errors.New("synthesizer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DeadlineSupervisor{
		registry:            opts.Registry,
		synthesizer:         opts.Synthesizer,
		compressor:          opts.Compressor,
		quality:             opts.Quality,
		compressPlaceholder: opts.CompressPlaceholder,
		logger:              logger.With("component", "deadline_supervisor"),
	}, nil
}

// Execute starts renderer for job and waits at most deadline for it.
//
// Once the deadline is observed the job moves to TimedOutBackground and the
// caller receives a placeholder; the supervisor itself never delivers.
// Outcomes are read from the worker's result cell after waking, so a worker
// that finished in the same instant the timer fired counts as completed.
func (s *DeadlineSupervisor) Execute(
	ctx context.Context,
	job model.Job,
	renderer core.Renderer,
	deadline time.Duration,
) (sup Supervision) {
	worker := StartWorker(ctx, renderer, job.Params)

	defer func() {
		if r := recover(); r != nil {
			sup = s.degrade(ctx, job, worker, fmt.Errorf("supervisor panic: %v", r))
		}
	}()

	outcome, artifact, renderErr := worker.Await(ctx, deadline)
	switch outcome {
	case model.OutcomeCompleted:
		return s.completed(ctx, job, worker, artifact)
	case model.OutcomeFailed:
		return s.failed(ctx, job, worker, renderErr)
	default:
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "caller went away before the deadline, continuing in background",
				"job_id", job.ID,
				"error", ctx.Err(),
			)
		}
		return s.timedOut(ctx, job, worker)
	}
}

func (s *DeadlineSupervisor) completed(ctx context.Context, job model.Job, worker *Worker, artifact *model.Artifact) Supervision {
	if s.compressor != nil {
		artifact = s.compressor.Compress(ctx, artifact, s.quality)
	}

	updated, err := s.update(job.ID, func(j *model.Job) error {
		if j.Status != model.JobStatusRunning {
			return errNotRunning
		}
		j.Status = model.JobStatusCompleted
		j.Result = artifact.Ref(j.Params.Filename())
		return nil
	})
	if err != nil {
		return s.degrade(ctx, job, worker, fmt.Errorf("record completion: %w", err))
	}

	s.logger.InfoContext(ctx, "generation completed before deadline",
		"job_id", job.ID,
		"pages", artifact.PageCount(),
		"bytes", artifact.Size(),
	)
	return Supervision{Outcome: model.OutcomeCompleted, Artifact: artifact, Job: updated}
}

func (s *DeadlineSupervisor) failed(ctx context.Context, job model.Job, worker *Worker, renderErr error) Supervision {
	updated, err := s.update(job.ID, func(j *model.Job) error {
		if j.Status != model.JobStatusRunning {
			return errNotRunning
		}
		j.Fail(model.StageRender, renderErr)
		return nil
	})
	if err != nil {
		return s.degrade(ctx, job, worker, fmt.Errorf("record failure: %w", err))
	}

	s.logger.WarnContext(ctx, "generation failed before deadline",
		"job_id", job.ID,
		"stage", model.StageRender,
		"error", renderErr,
	)
	return Supervision{Outcome: model.OutcomeFailed, Err: renderErr, Job: updated}
}

// timedOut moves the job to TimedOutBackground. Only the caller whose update
// succeeds may start a continuation.
func (s *DeadlineSupervisor) timedOut(ctx context.Context, job model.Job, worker *Worker) Supervision {
	sup := Supervision{Outcome: model.OutcomeTimedOut, Worker: worker, Job: job}

	updated, err := s.update(job.ID, func(j *model.Job) error {
		if j.Status != model.JobStatusRunning {
			return errNotRunning
		}
		j.Status = model.JobStatusTimedOutBackground
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "could not hand job to background continuation",
			"job_id", job.ID,
			"stage", model.StageContinuation,
			"error", err,
		)
	} else {
		sup.Job = updated
		sup.Continue = true
	}

	sup.Artifact = s.placeholder(ctx, job)
	return sup
}

func (s *DeadlineSupervisor) degrade(ctx context.Context, job model.Job, worker *Worker, cause error) Supervision {
	s.logger.ErrorContext(ctx, "supervisor fault, degrading to timed out",
		"job_id", job.ID,
		"error", cause,
	)
	return s.timedOut(ctx, job, worker)
}

// update wraps the registry so that a misbehaving implementation cannot panic
// through the degrade path.
func (s *DeadlineSupervisor) update(id string, mutate func(*model.Job) error) (job model.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registry panic: %v", r)
		}
	}()
	return s.registry.Update(id, mutate)
}

func (s *DeadlineSupervisor) placeholder(ctx context.Context, job model.Job) (artifact *model.Artifact) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "placeholder synthesis panicked", "job_id", job.ID, "panic", r)
			artifact = nil
		}
	}()

	artifact = s.synthesizer.Synthesize(job.Params)
	if artifact != nil && s.compressPlaceholder && s.compressor != nil {
		artifact = s.compressor.Compress(ctx, artifact, s.quality)
	}
	return artifact
}
