package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in DELIVERY_PROVIDERS.
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderResend   = "resend"
)

var knownProviders = []string{ProviderSMTP, ProviderSendGrid, ProviderResend}

// DeliveryConfig controls the email provider cascade. Providers are tried
// in the listed order; unconfigured providers are skipped.
type DeliveryConfig struct {
	Providers []string      `env:"DELIVERY_PROVIDERS" envDefault:"smtp,sendgrid,resend" envSeparator:"," yaml:"providers"`
	From      string        `env:"DELIVERY_FROM" yaml:"from"`
	FromName  string        `env:"DELIVERY_FROM_NAME" envDefault:"Periwatch" yaml:"from_name"`
	Timeout   time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"30s" yaml:"timeout"`

	// ConfigFile optionally points at a YAML document whose values override
	// the environment.
	ConfigFile string `env:"DELIVERY_CONFIG_FILE" yaml:"-"`

	SMTP     SMTPConfig     `envPrefix:"SMTP_"     yaml:"smtp"`
	SendGrid SendGridConfig `envPrefix:"SENDGRID_" yaml:"sendgrid"`
	Resend   ResendConfig   `envPrefix:"RESEND_"   yaml:"resend"`
}

// SMTPConfig configures the SMTP relay provider.
type SMTPConfig struct {
	Host        string `env:"HOST" yaml:"host"`
	Port        int    `env:"PORT" envDefault:"587" yaml:"port"`
	Username    string `env:"USERNAME" yaml:"username"`
	Password    string `env:"PASSWORD" yaml:"password"`
	TLSPolicy   string `env:"TLS_POLICY" envDefault:"mandatory" yaml:"tls_policy"`
	ImplicitTLS bool   `env:"IMPLICIT_TLS" yaml:"implicit_tls"`
}

// SendGridConfig configures the SendGrid API provider.
type SendGridConfig struct {
	APIKey  string `env:"API_KEY"  yaml:"api_key"`
	BaseURL string `env:"BASE_URL" yaml:"base_url"`
}

// ResendConfig configures the Resend API provider.
type ResendConfig struct {
	APIKey  string `env:"API_KEY"  yaml:"api_key"`
	BaseURL string `env:"BASE_URL" yaml:"base_url"`
}

// LoadFile overlays values from a YAML document onto the config. Keys that
// are absent from the document keep their current values.
func (d *DeliveryConfig) LoadFile(path string) error {
	if path == "" {
		return errors.New("delivery config path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open delivery config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(d); err != nil {
		return fmt.Errorf("decode delivery config %s: %w", path, err)
	}
	return nil
}

// Sanitize normalizes provider names and drops unknown or duplicate entries.
func (d *DeliveryConfig) Sanitize() {
	seen := make(map[string]struct{}, len(d.Providers))
	providers := make([]string, 0, len(d.Providers))
	for _, p := range d.Providers {
		name := strings.ToLower(strings.TrimSpace(p))
		if !slices.Contains(knownProviders, name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		providers = append(providers, name)
	}
	d.Providers = providers

	d.From = strings.TrimSpace(d.From)
	d.FromName = strings.TrimSpace(d.FromName)
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}

	d.SMTP.Host = strings.TrimSpace(d.SMTP.Host)
	if d.SMTP.Port <= 0 {
		d.SMTP.Port = 587
	}
	d.SMTP.TLSPolicy = strings.ToLower(strings.TrimSpace(d.SMTP.TLSPolicy))
	d.SendGrid.APIKey = strings.TrimSpace(d.SendGrid.APIKey)
	d.Resend.APIKey = strings.TrimSpace(d.Resend.APIKey)
}

// Configured reports whether the named provider has the credentials it needs.
func (d *DeliveryConfig) Configured(name string) bool {
	switch name {
	case ProviderSMTP:
		return d.SMTP.Host != ""
	case ProviderSendGrid:
		return d.SendGrid.APIKey != ""
	case ProviderResend:
		return d.Resend.APIKey != ""
	default:
		return false
	}
}

// EnabledProviders returns the configured providers in cascade order.
func (d *DeliveryConfig) EnabledProviders() []string {
	out := make([]string, 0, len(d.Providers))
	for _, p := range d.Providers {
		if d.Configured(p) {
			out = append(out, p)
		}
	}
	return out
}
