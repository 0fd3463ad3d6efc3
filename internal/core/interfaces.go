// Package core defines the ports the generation service depends on.
package core

import (
	"context"
	"time"

	"github.com/periwatch/brief-api/internal/delivery"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// These interfaces define the contracts between the service layer and the
// registry, rendering, compression and delivery implementations. Service code
// depends on these, not on concrete types.

// JobRegistry stores job records for the lifetime of the process.
type JobRegistry interface {
	// Create inserts a new Running job and returns a copy of it.
	Create(params model.GenerateParams) (model.Job, error)

	// Get returns a copy of the job. The boolean is false for unknown ids.
	Get(id string) (model.Job, bool)

	// Update applies mutate to a copy of the job and stores it if the resulting
	// status transition is allowed. A mutate error aborts the update.
	Update(id string, mutate func(*model.Job) error) (model.Job, error)

	// DeleteIf removes the job when match returns true for its current state.
	DeleteIf(id string, match func(model.Job) bool) bool

	// Keys returns a snapshot of stored ids.
	Keys() []string

	// Now returns the registry clock's current time.
	Now() time.Time
}

// Renderer turns request parameters into a full artifact. It may take an
// unbounded amount of time and is never cancelled once started.
type Renderer interface {
	Render(ctx context.Context, params model.GenerateParams) (*model.Artifact, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, params model.GenerateParams) (*model.Artifact, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, params model.GenerateParams) (*model.Artifact, error) {
	return f(ctx, params)
}

// Compressor shrinks an artifact at the given lossy quality (1-100). It never
// fails: on any problem it returns the input unchanged.
type Compressor interface {
	Compress(ctx context.Context, artifact *model.Artifact, quality int) *model.Artifact
}

// Synthesizer builds a placeholder artifact. A nil result means nothing
// renderable could be produced.
type Synthesizer interface {
	Synthesize(params model.GenerateParams) *model.Artifact
}

// Deliverer sends a message through the configured delivery providers.
type Deliverer interface {
	Send(ctx context.Context, msg delivery.Message) (delivery.Result, error)
}
