package config

import "time"

const (
	defaultGenerationDeadline = 30 * time.Second
	defaultMaxDeadline        = 120 * time.Second
	defaultDrainTimeout       = 30 * time.Second
)

// GenerationConfig controls request deadlines and the shutdown drain window.
type GenerationConfig struct {
	// DefaultDeadline applies when a request does not carry its own deadline.
	DefaultDeadline time.Duration `env:"GENERATION_DEFAULT_DEADLINE" envDefault:"30s"`

	// MaxDeadline caps caller-provided deadlines.
	MaxDeadline time.Duration `env:"GENERATION_MAX_DEADLINE" envDefault:"120s"`

	// DrainTimeout bounds how long shutdown waits for background deliveries.
	DrainTimeout time.Duration `env:"GENERATION_DRAIN_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to deadline values.
func (g *GenerationConfig) Sanitize() {
	if g.DefaultDeadline <= 0 {
		g.DefaultDeadline = defaultGenerationDeadline
	}
	if g.MaxDeadline <= 0 {
		g.MaxDeadline = defaultMaxDeadline
	}
	if g.MaxDeadline < g.DefaultDeadline {
		g.MaxDeadline = g.DefaultDeadline
	}
	if g.DrainTimeout < 0 {
		g.DrainTimeout = defaultDrainTimeout
	}
}
