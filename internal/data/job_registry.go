package data

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/periwatch/brief-api/internal/domain/job"
	"github.com/periwatch/brief-api/internal/domain/model"
)

// JobRegistryOptions configures a JobRegistry.
type JobRegistryOptions struct {
	TimeProvider TimeProvider  // Optional: defaults to RealTimeProvider
	NewID        func() string // Optional: defaults to uuid.NewString
}

// JobRegistry is the process-wide, in-memory store of job records.
// Records are lost when the process exits.
//
// All methods are safe for concurrent use. Callers only ever receive copies of
// stored records, so a returned Job can be read without holding any lock.
type JobRegistry struct {
	mu     sync.RWMutex
	jobs   map[string]*model.Job
	closed bool

	clock TimeProvider
	newID func() string
}

// NewJobRegistry constructs an empty registry.
func NewJobRegistry(opts JobRegistryOptions) *JobRegistry {
	clock := opts.TimeProvider
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &JobRegistry{
		jobs:  make(map[string]*model.Job),
		clock: clock,
		newID: newID,
	}
}

// Create inserts a new Running job for params and returns a copy of it.
func (r *JobRegistry) Create(params model.GenerateParams) (model.Job, error) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return model.Job{}, ErrRegistryClosed
	}

	id := r.newID()
	for _, exists := r.jobs[id]; exists; _, exists = r.jobs[id] {
		id = r.newID()
	}

	rec := clone(&model.Job{
		ID:        id,
		Status:    model.JobStatusRunning,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	})
	r.jobs[id] = &rec
	return clone(&rec), nil
}

// Get returns a copy of the job with the given id. The boolean is false when
// no such job exists.
func (r *JobRegistry) Get(id string) (model.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return clone(rec), true
}

// Update applies mutate to a copy of the job and stores the result if it
// follows the status state machine. If mutate returns an error the record is
// left untouched and that error is returned. Identity fields cannot be changed.
func (r *JobRegistry) Update(id string, mutate func(*model.Job) error) (model.Job, error) {
	if id == "" {
		return model.Job{}, ErrJobIDRequired
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[id]
	if !ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.IsTerminal(rec.Status) {
		return clone(rec), fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, rec.Status)
	}

	next := clone(rec)
	if err := mutate(&next); err != nil {
		return clone(rec), err
	}

	next.ID = rec.ID
	next.CreatedAt = rec.CreatedAt
	next.Params = rec.Params

	if !job.CanTransition(rec.Status, next.Status) {
		return clone(rec), fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, next.Status)
	}
	if next.Result != nil && !job.IsSuccess(next.Status) {
		return clone(rec), ErrResultNotAllowed
	}

	next.UpdatedAt = now
	stored := clone(&next)
	r.jobs[id] = &stored
	return clone(&stored), nil
}

// Delete removes the job with the given id and reports whether it existed.
func (r *JobRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// DeleteIf removes the job only if match returns true for its current state.
// The check and the removal happen under the same lock.
func (r *JobRegistry) DeleteIf(id string, match func(model.Job) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[id]
	if !ok || !match(clone(rec)) {
		return false
	}
	delete(r.jobs, id)
	return true
}

// Keys returns a snapshot of the ids currently stored.
func (r *JobRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		keys = append(keys, id)
	}
	return keys
}

// Len returns the number of stored jobs.
func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// CountByStatus returns the number of stored jobs per status.
func (r *JobRegistry) CountByStatus() map[model.JobStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[model.JobStatus]int)
	for _, rec := range r.jobs {
		counts[rec.Status]++
	}
	return counts
}

// Now returns the registry's notion of the current time.
func (r *JobRegistry) Now() time.Time {
	return r.clock.Now()
}

// Close rejects further Create calls and drops every stored record.
func (r *JobRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	clear(r.jobs)
}

// clone copies rec so that no map or pointer is shared with the stored record.
func clone(rec *model.Job) model.Job {
	out := *rec
	out.Params.Metadata = maps.Clone(rec.Params.Metadata)
	out.Params.Content.Extra = maps.Clone(rec.Params.Content.Extra)
	if rec.Result != nil {
		ref := *rec.Result
		out.Result = &ref
	}
	return out
}
