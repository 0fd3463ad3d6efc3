package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/delivery"
	"github.com/periwatch/brief-api/internal/domain/model"
	obserrors "github.com/periwatch/brief-api/internal/observability/errors"
	"github.com/periwatch/brief-api/internal/observability/metrics"
	"github.com/periwatch/brief-api/internal/observability/notify"
	"github.com/periwatch/brief-api/internal/observability/statsd"
)

// FailureNotifier receives background failures that have no caller to report to.
type FailureNotifier interface {
	NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload)
}

// ContinuationOptions groups dependencies for ContinuationTracker.
type ContinuationOptions struct {
	Registry   core.JobRegistry // Required: job records
	Deliverer  core.Deliverer   // Required: delivery cascade
	Compressor core.Compressor  // Optional: nil disables compression
	Notifier   FailureNotifier  // Optional: failure fan-out
	Quality    int
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// ContinuationTracker runs background continuations for jobs whose deadline
// elapsed. Each continuation is detached from any request and cannot be
// cancelled; Drain only waits for them.
type ContinuationTracker struct {
	registry   core.JobRegistry
	deliverer  core.Deliverer
	compressor core.Compressor
	notifier   FailureNotifier
	quality    int
	logger     *slog.Logger
	metrics    statsd.Sink

	mu       sync.Mutex
	inflight map[string]time.Time
	idle     chan struct{} // closed when inflight empties while Drain waits
}

// NewContinuationTracker constructs a ContinuationTracker.
func NewContinuationTracker(opts ContinuationOptions) (*ContinuationTracker, error) {
	if opts.Registry == nil {
		return nil, errors.New("job registry is required")
	}
	if opts.Deliverer == nil {
		return nil, errors.New("deliverer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContinuationTracker{
		registry:   opts.Registry,
		deliverer:  opts.Deliverer,
		compressor: opts.Compressor,
		notifier:   opts.Notifier,
		quality:    opts.Quality,
		logger:     logger.With("component", "continuation"),
		metrics:    opts.Metrics,
		inflight:   make(map[string]time.Time),
	}, nil
}

// Continue starts the background continuation for job. It returns false, and
// does nothing, when the stored job is not in TimedOutBackground or a
// continuation for it is already running. A finished continuation leaves the
// job terminal, so it can never be started again.
func (t *ContinuationTracker) Continue(job model.Job, worker *Worker) bool {
	if worker == nil {
		return false
	}

	// The status check happens under the lock: a finishing continuation makes
	// the job terminal before it leaves the inflight set.
	t.mu.Lock()
	if _, dup := t.inflight[job.ID]; dup {
		t.mu.Unlock()
		return false
	}
	current, ok := t.registry.Get(job.ID)
	if !ok || current.Status != model.JobStatusTimedOutBackground {
		t.mu.Unlock()
		return false
	}
	t.inflight[job.ID] = time.Now()
	t.mu.Unlock()

	go t.run(current, worker)
	return true
}

// InFlight returns the ids of continuations that have not finished, sorted.
func (t *ContinuationTracker) InFlight() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.inflight))
	for id := range t.inflight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Drain waits for running continuations until ctx is done. Continuations
// started while Drain waits are waited for too. It returns the ids still
// running when ctx expired, together with ctx's error.
func (t *ContinuationTracker) Drain(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	if len(t.inflight) == 0 {
		t.mu.Unlock()
		return nil, nil
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil, nil
	case <-ctx.Done():
		return t.InFlight(), ctx.Err()
	}
}

func (t *ContinuationTracker) run(job model.Job, worker *Worker) {
	ctx := context.Background()
	defer func() {
		t.mu.Lock()
		delete(t.inflight, job.ID)
		if len(t.inflight) == 0 && t.idle != nil {
			close(t.idle)
			t.idle = nil
		}
		t.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			t.fail(ctx, job, worker, model.StageContinuation, fmt.Errorf("continuation panic: %v", r))
		}
	}()

	t.logger.InfoContext(ctx, "waiting for background generation", "job_id", job.ID)

	artifact, err := worker.Wait()
	if err != nil {
		t.fail(ctx, job, worker, model.StageRender, err)
		return
	}

	if t.compressor != nil {
		artifact = t.compressor.Compress(ctx, artifact, t.quality)
	}

	filename := job.Params.Filename()
	msg, err := delivery.ComposeReport(delivery.ReportEmail{
		To:          job.Recipient(),
		Title:       job.Params.Title,
		Filename:    filename,
		Content:     artifact.Content,
		Pages:       artifact.PageCount(),
		GeneratedAt: time.Now(),
	})
	if err != nil {
		t.fail(ctx, job, worker, model.StageDeliver, fmt.Errorf("compose email: %w", err))
		return
	}

	res, err := t.deliverer.Send(ctx, msg)
	if err != nil {
		t.fail(ctx, job, worker, model.StageDeliver, err)
		return
	}

	_, err = t.registry.Update(job.ID, func(j *model.Job) error {
		j.Status = model.JobStatusCompletedAndSent
		j.Result = artifact.Ref(filename)
		j.DeliveredVia = res.Provider
		return nil
	})
	if err != nil {
		// The report was delivered; only the record is stale or gone.
		t.logger.ErrorContext(ctx, "delivered report but could not record completion",
			"job_id", job.ID,
			"stage", model.StageContinuation,
			"provider", res.Provider,
			"error", err,
		)
	}

	metrics.EmitContinuation(t.metrics, metrics.Continuation{
		Status: string(model.JobStatusCompletedAndSent),
		Wait:   time.Since(worker.StartedAt()),
	})
	t.logger.InfoContext(ctx, "background report delivered",
		"job_id", job.ID,
		"provider", res.Provider,
		"attempts", len(res.Attempts),
		"bytes", artifact.Size(),
	)
}

// fail records cause on the job, logs it with its stage and notifies operators.
func (t *ContinuationTracker) fail(ctx context.Context, job model.Job, worker *Worker, stage string, cause error) {
	_, err := t.registry.Update(job.ID, func(j *model.Job) error {
		j.Fail(stage, cause)
		return nil
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "could not record background failure",
			"job_id", job.ID,
			"stage", stage,
			"error", err,
		)
	}

	t.logger.ErrorContext(ctx, "background job failed",
		"job_id", job.ID,
		"stage", stage,
		"recipient", job.Recipient(),
		"error", cause,
	)
	metrics.EmitContinuation(t.metrics, metrics.Continuation{
		Status: string(model.JobStatusFailed),
		Stage:  stage,
		Wait:   time.Since(worker.StartedAt()),
	})

	if t.notifier != nil {
		t.notifier.NotifyJobFailure(ctx, notify.JobFailurePayload{
			JobID:      job.ID,
			Title:      job.Params.Title,
			Recipient:  job.Recipient(),
			Stage:      stage,
			Error:      cause.Error(),
			ErrorClass: obserrors.Classify(cause),
			OccurredAt: time.Now().UTC(),
			Metadata:   job.Params.Metadata,
		})
	}
}
