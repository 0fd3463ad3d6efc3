package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - http.go: HTTP server configuration
//   - generation.go: Deadline and shutdown drain configuration
//   - compression.go: Image-based PDF compression
//   - delivery.go: Email providers and cascade order
//   - retention.go: Job record retention sweeps
//   - renderer.go: Upstream document renderer
//   - observability.go: Metrics and failure notifications
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Generation deadline configuration
	Generation GenerationConfig

	// Compression configuration
	Compression CompressionConfig

	// Delivery configuration
	Delivery DeliveryConfig

	// Retention configuration
	Retention RetentionConfig

	// Renderer configuration
	Renderer RendererConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
func (c *AppConfig) Sanitize() {
	if strings.EqualFold(os.Getenv("NODE_ENV"), "development") {
		c.IsDev = true
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}

	c.Generation.Sanitize()
	c.HTTP.Sanitize()
	// A response may be held open for the longest permitted deadline plus
	// the time needed to write the artifact.
	c.HTTP.EnsureWriteTimeout(c.Generation.MaxDeadline + writeTimeoutHeadroom)
	// Shutdown lets in-flight generate requests finish, so their background
	// continuations are registered before the drain starts.
	c.HTTP.EnsureShutdownTimeout(c.Generation.MaxDeadline + writeTimeoutHeadroom)
	c.Compression.Sanitize()
	c.Delivery.Sanitize()
	c.Retention.Sanitize()
	c.Renderer.Sanitize()
	c.Observability.Sanitize()
}
