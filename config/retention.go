package config

import (
	"strings"
	"time"
)

const (
	defaultRetentionSchedule = "@every 1h"
	defaultRetentionMaxAge   = 24 * time.Hour
)

// RetentionConfig controls the periodic job record sweep.
type RetentionConfig struct {
	Enabled bool `env:"RETENTION_ENABLED" envDefault:"true"`

	// Schedule is a cron expression or descriptor such as "@every 1h".
	Schedule string `env:"RETENTION_SCHEDULE" envDefault:"@every 1h"`

	// MaxAge is the age beyond which records are removed.
	MaxAge time.Duration `env:"RETENTION_MAX_AGE" envDefault:"24h"`
}

// Sanitize applies guardrails to retention values.
func (r *RetentionConfig) Sanitize() {
	if r.Schedule = strings.TrimSpace(r.Schedule); r.Schedule == "" {
		r.Schedule = defaultRetentionSchedule
	}
	if r.MaxAge <= 0 {
		r.MaxAge = defaultRetentionMaxAge
	}
}
