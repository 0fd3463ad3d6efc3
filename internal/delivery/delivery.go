// Package delivery sends finished artifacts to recipients through an ordered
// list of providers, falling back to the next provider on failure.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a provider-neutral email.
type Message struct {
	To         string
	Subject    string
	TextBody   string
	HTMLBody   string
	Attachment *Attachment
}

// Provider sends one message. Implementations must be safe for concurrent use
// and must report failures as *ProviderError so the cascade can classify them.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// KindAuth covers rejected credentials and missing or invalid configuration.
	KindAuth ErrorKind = "auth"
	// KindRateLimited covers throttling and temporary refusals.
	KindRateLimited ErrorKind = "rate_limited"
	// KindInvalidAddress covers malformed or rejected recipient/sender addresses.
	KindInvalidAddress ErrorKind = "invalid_address"
	// KindNetwork covers connection, TLS and timeout failures.
	KindNetwork ErrorKind = "network"
	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown"
)

// ProviderError is the typed failure produced at each provider boundary.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// KindOf returns the classification carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Kind != "" {
		return perr.Kind
	}
	return KindUnknown
}

// Outcome of a single provider attempt.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Attempt records one provider invocation during a Send call.
type Attempt struct {
	Provider string
	Outcome  Outcome
	Kind     ErrorKind
	Err      error
}

// Result describes a successful Send.
type Result struct {
	Provider string
	Attempts []Attempt
}

// ErrNoProviders is returned when a cascade has nothing to try.
var ErrNoProviders = errors.New("no delivery providers configured")

// ExhaustedError is returned when every provider failed.
type ExhaustedError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Provider, a.Kind))
	}
	return "all delivery providers failed: " + strings.Join(parts, ", ")
}

// Unwrap exposes every per-provider error to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Kinds returns the classification of each attempt in order.
func (e *ExhaustedError) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(e.Attempts))
	for i, a := range e.Attempts {
		kinds[i] = a.Kind
	}
	return kinds
}
