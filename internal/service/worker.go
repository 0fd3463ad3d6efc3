package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// ErrNoArtifact is recorded when a renderer returns neither an artifact nor an error.
var ErrNoArtifact = errors.New("renderer returned no artifact")

// Worker is one running generation. Its result cell is written exactly once by
// the generation goroutine and read by the supervisor and the continuation.
type Worker struct {
	startedAt time.Time
	done      chan struct{}

	mu        sync.Mutex
	completed bool
	errored   bool
	artifact  *model.Artifact
	err       error
}

// StartWorker runs renderer in its own goroutine. The render context keeps the
// values of ctx but never its cancellation: generation is not cancelled once
// started, even when the caller goes away.
func StartWorker(ctx context.Context, renderer core.Renderer, params model.GenerateParams) *Worker {
	w := &Worker{startedAt: time.Now(), done: make(chan struct{})}
	renderCtx := context.WithoutCancel(ctx)

	go func() {
		var (
			artifact *model.Artifact
			err      error
		)
		defer func() {
			if r := recover(); r != nil {
				artifact, err = nil, fmt.Errorf("renderer panic: %v", r)
			}
			w.finish(artifact, err)
		}()
		if renderer == nil {
			err = errors.New("no renderer configured")
			return
		}
		artifact, err = renderer.Render(renderCtx, params)
		if err == nil && artifact == nil {
			err = ErrNoArtifact
		}
	}()
	return w
}

func (w *Worker) finish(artifact *model.Artifact, err error) {
	w.mu.Lock()
	if err != nil {
		w.errored, w.err = true, err
	} else {
		w.completed, w.artifact = true, artifact
	}
	w.mu.Unlock()
	close(w.done)
}

// Done is closed once the worker has recorded its result.
func (w *Worker) Done() <-chan struct{} { return w.done }

// StartedAt reports when generation began.
func (w *Worker) StartedAt() time.Time { return w.startedAt }

// observe reads the cell. Success wins over error, and both win over timeout.
func (w *Worker) observe() (model.Outcome, *model.Artifact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.completed:
		return model.OutcomeCompleted, w.artifact, nil
	case w.errored:
		return model.OutcomeFailed, nil, w.err
	default:
		return model.OutcomeTimedOut, nil, nil
	}
}

// Await blocks until the worker finishes, the deadline elapses or ctx is done,
// then reports what it observed. It never blocks past the deadline.
func (w *Worker) Await(ctx context.Context, deadline time.Duration) (model.Outcome, *model.Artifact, error) {
	if deadline < 0 {
		deadline = 0
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-w.done:
	case <-timer.C:
	case <-ctx.Done():
	}
	return w.observe()
}

// Wait blocks until the worker finishes. There is no upper bound.
func (w *Worker) Wait() (*model.Artifact, error) {
	<-w.done
	_, artifact, err := w.observe()
	return artifact, err
}
