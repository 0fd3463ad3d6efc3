package config

import "strings"

const defaultRendererMaxBytes = 64 << 20

// RendererConfig selects the document renderer. An empty URL uses the
// built-in brief renderer.
type RendererConfig struct {
	URL      string `env:"RENDERER_URL"`
	MaxBytes int64  `env:"RENDERER_MAX_BYTES" envDefault:"67108864"`
}

// Sanitize trims the endpoint and clamps the response limit.
func (r *RendererConfig) Sanitize() {
	r.URL = strings.TrimSpace(r.URL)
	if r.MaxBytes <= 0 {
		r.MaxBytes = defaultRendererMaxBytes
	}
}

// Remote reports whether an external renderer endpoint is configured.
func (r *RendererConfig) Remote() bool {
	return r.URL != ""
}
