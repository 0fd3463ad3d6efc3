package data

import "errors"

// Shared sentinel errors for the job registry.
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobTerminal       = errors.New("job is in a terminal status")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrResultNotAllowed  = errors.New("result artifact requires a terminal success status")
	ErrRegistryClosed    = errors.New("job registry is closed")
	ErrJobIDRequired     = errors.New("job id is required")
)
