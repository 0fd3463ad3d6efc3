package job

import (
	"errors"
	"time"
)

// ErrInvalidDefaultDeadline indicates the configured default deadline is not positive.
var ErrInvalidDefaultDeadline = errors.New("default deadline must be positive")

// DeadlineSource identifies how a deadline was resolved.
type DeadlineSource string

const (
	// DeadlineSourceExplicit indicates the caller supplied a usable duration.
	DeadlineSourceExplicit DeadlineSource = "explicit"
	// DeadlineSourceDefault indicates the default duration was used.
	DeadlineSourceDefault DeadlineSource = "default"
	// DeadlineSourceClamped indicates the requested duration exceeded the maximum.
	DeadlineSourceClamped DeadlineSource = "clamped"
)

// DeadlinePolicy normalises how long a caller may be blocked waiting for an artifact.
type DeadlinePolicy struct {
	defaultDeadline time.Duration
	maxDeadline     time.Duration
}

// NewDeadlinePolicy constructs a DeadlinePolicy. A max below the default is raised to the default.
func NewDeadlinePolicy(defaultDeadline, maxDeadline time.Duration) (*DeadlinePolicy, error) {
	if defaultDeadline <= 0 {
		return nil, ErrInvalidDefaultDeadline
	}
	if maxDeadline < defaultDeadline {
		maxDeadline = defaultDeadline
	}
	return &DeadlinePolicy{defaultDeadline: defaultDeadline, maxDeadline: maxDeadline}, nil
}

// Default returns the configured default deadline.
func (p *DeadlinePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultDeadline
}

// Max returns the longest deadline a caller may request.
func (p *DeadlinePolicy) Max() time.Duration {
	if p == nil {
		return 0
	}
	return p.maxDeadline
}

// DeadlineDecision captures the outcome of resolving a deadline request.
type DeadlineDecision struct {
	Deadline  time.Duration
	Source    DeadlineSource
	Requested time.Duration
}

// UsedDefault reports whether the policy fell back to the default deadline.
func (d DeadlineDecision) UsedDefault() bool {
	return d.Source == DeadlineSourceDefault
}

// Clamped reports whether the requested value was lowered to the maximum.
func (d DeadlineDecision) Clamped() bool {
	return d.Source == DeadlineSourceClamped
}

// Resolve returns the deadline to apply for request. Non-positive requests use the default.
func (p *DeadlinePolicy) Resolve(request time.Duration) DeadlineDecision {
	decision := DeadlineDecision{Requested: request}
	if p == nil {
		decision.Deadline = request
		decision.Source = DeadlineSourceExplicit
		return decision
	}

	switch {
	case request <= 0:
		decision.Deadline = p.defaultDeadline
		decision.Source = DeadlineSourceDefault
	case request > p.maxDeadline:
		decision.Deadline = p.maxDeadline
		decision.Source = DeadlineSourceClamped
	default:
		decision.Deadline = request
		decision.Source = DeadlineSourceExplicit
	}
	return decision
}
