package config

const (
	defaultCompressionQuality = 40
	defaultCompressionScale   = 1.9
	maxCompressionScale       = 4.0
)

// CompressionConfig controls image-based recompression of rendered documents.
type CompressionConfig struct {
	Enabled bool `env:"COMPRESSION_ENABLED" envDefault:"true"`

	// Quality is the JPEG quality used for re-encoded pages (1-100).
	Quality int `env:"COMPRESSION_QUALITY" envDefault:"40"`

	// Scale multiplies the 72 DPI base resolution when rasterizing pages.
	Scale float64 `env:"COMPRESSION_SCALE" envDefault:"1.9"`

	// CompressPlaceholder also compresses synthesized placeholder documents.
	CompressPlaceholder bool `env:"COMPRESSION_PLACEHOLDER" envDefault:"false"`
}

// Sanitize applies guardrails to compression values.
func (c *CompressionConfig) Sanitize() {
	if c.Quality < 1 || c.Quality > 100 {
		c.Quality = defaultCompressionQuality
	}
	if c.Scale <= 0 {
		c.Scale = defaultCompressionScale
	}
	if c.Scale > maxCompressionScale {
		c.Scale = maxCompressionScale
	}
}
