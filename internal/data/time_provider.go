package data

import (
	"sync"
	"time"
)

// TimeProvider provides the current time and can be replaced in tests.
type TimeProvider interface {
	// Now returns the current time
	Now() time.Time
}

// RealTimeProvider implements TimeProvider using real system time.
type RealTimeProvider struct{}

// Now returns the current system time in UTC.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// FixedTimeProvider implements TimeProvider with a controllable time for testing.
// It is safe for concurrent use.
type FixedTimeProvider struct {
	mu        sync.RWMutex
	fixedTime time.Time
}

// NewFixedTimeProvider creates a new FixedTimeProvider with the given time.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

// Now returns the fixed time.
func (f *FixedTimeProvider) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fixedTime
}

// SetTime updates the fixed time (useful for testing time progression).
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.mu.Lock()
	f.fixedTime = t
	f.mu.Unlock()
}

// AddTime adds a duration to the current fixed time.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.mu.Lock()
	f.fixedTime = f.fixedTime.Add(d)
	f.mu.Unlock()
}
