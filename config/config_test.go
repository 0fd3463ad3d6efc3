package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_ParseDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}
	if cfg.Generation.DefaultDeadline != 30*time.Second {
		t.Errorf("expected default deadline 30s, got %v", cfg.Generation.DefaultDeadline)
	}
	if cfg.Generation.MaxDeadline != 120*time.Second {
		t.Errorf("expected max deadline 120s, got %v", cfg.Generation.MaxDeadline)
	}
	if cfg.Compression.Quality != 40 || cfg.Compression.Scale != 1.9 || !cfg.Compression.Enabled {
		t.Errorf("unexpected compression defaults: %+v", cfg.Compression)
	}
	if cfg.Compression.CompressPlaceholder {
		t.Error("expected placeholders to skip compression by default")
	}
	wantProviders := []string{ProviderSMTP, ProviderSendGrid, ProviderResend}
	if !reflect.DeepEqual(cfg.Delivery.Providers, wantProviders) {
		t.Errorf("expected providers %v, got %v", wantProviders, cfg.Delivery.Providers)
	}
	if cfg.Retention.Schedule != "@every 1h" || cfg.Retention.MaxAge != 24*time.Hour {
		t.Errorf("unexpected retention defaults: %+v", cfg.Retention)
	}
	if cfg.Renderer.Remote() {
		t.Error("expected built-in renderer by default")
	}
}

func TestAppConfig_ParseEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("GENERATION_DEFAULT_DEADLINE", "5s")
	t.Setenv("GENERATION_MAX_DEADLINE", "300s")
	t.Setenv("COMPRESSION_QUALITY", "65")
	t.Setenv("DELIVERY_PROVIDERS", "resend, SMTP ,carrier-pigeon,smtp")
	t.Setenv("SMTP_HOST", " mail.example.com ")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("RENDERER_URL", "http://renderer:9000/render")
	t.Setenv("OBSERVABILITY_NOTIFICATIONS_SLACK_STATUS_URL_PREFIX", "https://briefs.example.com/task-status/")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.Generation.DefaultDeadline != 5*time.Second {
		t.Errorf("expected default deadline 5s, got %v", cfg.Generation.DefaultDeadline)
	}
	if cfg.HTTP.WriteTimeout < 310*time.Second {
		t.Errorf("expected write timeout to cover max deadline, got %v", cfg.HTTP.WriteTimeout)
	}
	if cfg.HTTP.ShutdownTimeout < cfg.Generation.MaxDeadline {
		t.Errorf("expected shutdown timeout to cover max deadline, got %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.Compression.Quality != 65 {
		t.Errorf("expected quality 65, got %d", cfg.Compression.Quality)
	}
	if !reflect.DeepEqual(cfg.Delivery.Providers, []string{ProviderResend, ProviderSMTP}) {
		t.Errorf("unexpected providers %v", cfg.Delivery.Providers)
	}
	if cfg.Delivery.SMTP.Host != "mail.example.com" {
		t.Errorf("expected trimmed smtp host, got %q", cfg.Delivery.SMTP.Host)
	}
	if !reflect.DeepEqual(cfg.Delivery.EnabledProviders(), []string{ProviderResend, ProviderSMTP}) {
		t.Errorf("unexpected enabled providers %v", cfg.Delivery.EnabledProviders())
	}
	if !cfg.Renderer.Remote() {
		t.Error("expected remote renderer")
	}
	if cfg.Observability.Notifications.Slack.StatusURLPrefix != "https://briefs.example.com/task-status/" {
		t.Errorf("unexpected status prefix %q", cfg.Observability.Notifications.Slack.StatusURLPrefix)
	}
}

func TestAppConfig_SanitizeUnknownLogLevel(t *testing.T) {
	cfg := AppConfig{LogLevel: "verbose"}
	cfg.Sanitize()
	if cfg.LogLevel != "info" {
		t.Fatalf("expected fallback to info, got %q", cfg.LogLevel)
	}
}

func TestGenerationConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   GenerationConfig
		want GenerationConfig
	}{
		{
			name: "zero values fall back to defaults",
			in:   GenerationConfig{},
			want: GenerationConfig{DefaultDeadline: 30 * time.Second, MaxDeadline: 120 * time.Second},
		},
		{
			name: "max below default is raised",
			in:   GenerationConfig{DefaultDeadline: time.Minute, MaxDeadline: 10 * time.Second, DrainTimeout: time.Second},
			want: GenerationConfig{DefaultDeadline: time.Minute, MaxDeadline: time.Minute, DrainTimeout: time.Second},
		},
		{
			name: "negative drain restored",
			in:   GenerationConfig{DefaultDeadline: time.Second, MaxDeadline: time.Second, DrainTimeout: -1},
			want: GenerationConfig{DefaultDeadline: time.Second, MaxDeadline: time.Second, DrainTimeout: 30 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Sanitize()
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCompressionConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name        string
		in          CompressionConfig
		wantQuality int
		wantScale   float64
	}{
		{name: "valid values kept", in: CompressionConfig{Quality: 80, Scale: 2}, wantQuality: 80, wantScale: 2},
		{name: "quality too low", in: CompressionConfig{Quality: 0, Scale: 1.9}, wantQuality: 40, wantScale: 1.9},
		{name: "quality too high", in: CompressionConfig{Quality: 101, Scale: 1.9}, wantQuality: 40, wantScale: 1.9},
		{name: "scale missing", in: CompressionConfig{Quality: 40}, wantQuality: 40, wantScale: 1.9},
		{name: "scale clamped", in: CompressionConfig{Quality: 40, Scale: 12}, wantQuality: 40, wantScale: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Sanitize()
			if got.Quality != tt.wantQuality || got.Scale != tt.wantScale {
				t.Fatalf("expected quality=%d scale=%v, got quality=%d scale=%v",
					tt.wantQuality, tt.wantScale, got.Quality, got.Scale)
			}
		})
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{CompressionLevel: 42, WriteTimeout: time.Second}
	cfg.Sanitize()
	cfg.EnsureWriteTimeout(2 * time.Minute)

	if cfg.CompressionLevel != 9 {
		t.Errorf("expected compression level clamped to 9, got %d", cfg.CompressionLevel)
	}
	if cfg.WriteTimeout != 2*time.Minute {
		t.Errorf("expected write timeout raised, got %v", cfg.WriteTimeout)
	}
	if cfg.ReadHeaderTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		t.Errorf("expected timeouts to have defaults: %+v", cfg)
	}

	cfg.EnsureWriteTimeout(time.Second)
	if cfg.WriteTimeout != 2*time.Minute {
		t.Errorf("expected write timeout never lowered, got %v", cfg.WriteTimeout)
	}
}

func TestAppConfig_ShutdownCoversMaxDeadline(t *testing.T) {
	cfg := AppConfig{
		HTTP:       HTTPConfig{ShutdownTimeout: 15 * time.Second},
		Generation: GenerationConfig{DefaultDeadline: 30 * time.Second, MaxDeadline: 120 * time.Second},
	}
	cfg.Sanitize()

	if cfg.HTTP.ShutdownTimeout != 130*time.Second {
		t.Errorf("expected shutdown timeout raised to 130s, got %v", cfg.HTTP.ShutdownTimeout)
	}

	cfg.HTTP.EnsureShutdownTimeout(time.Second)
	if cfg.HTTP.ShutdownTimeout != 130*time.Second {
		t.Errorf("expected shutdown timeout never lowered, got %v", cfg.HTTP.ShutdownTimeout)
	}
}

func TestRetentionConfig_Sanitize(t *testing.T) {
	cfg := RetentionConfig{Schedule: "   ", MaxAge: -time.Hour}
	cfg.Sanitize()

	if cfg.Schedule != "@every 1h" {
		t.Errorf("expected default schedule, got %q", cfg.Schedule)
	}
	if cfg.MaxAge != 24*time.Hour {
		t.Errorf("expected default max age, got %v", cfg.MaxAge)
	}
}

func TestDeliveryConfig_Configured(t *testing.T) {
	cfg := DeliveryConfig{
		Providers: []string{ProviderSMTP, ProviderSendGrid, ProviderResend},
		SendGrid:  SendGridConfig{APIKey: "SG.key"},
	}
	cfg.Sanitize()

	if cfg.Configured(ProviderSMTP) {
		t.Error("expected smtp unconfigured without host")
	}
	if !cfg.Configured(ProviderSendGrid) {
		t.Error("expected sendgrid configured")
	}
	if cfg.Configured("fax") {
		t.Error("expected unknown provider unconfigured")
	}
	if got := cfg.EnabledProviders(); !reflect.DeepEqual(got, []string{ProviderSendGrid}) {
		t.Errorf("unexpected enabled providers %v", got)
	}
	if cfg.SMTP.Port != 587 || cfg.Timeout != 30*time.Second {
		t.Errorf("expected smtp port and timeout defaults, got port=%d timeout=%v", cfg.SMTP.Port, cfg.Timeout)
	}
}

func TestDeliveryConfig_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delivery.yaml")
	doc := strings.Join([]string{
		"providers: [resend, sendgrid]",
		"from: reports@example.com",
		"timeout: 45s",
		"resend:",
		"  api_key: re_file",
		"smtp:",
		"  host: relay.example.com",
		"  port: 2525",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DeliveryConfig{
		Providers: []string{ProviderSMTP},
		FromName:  "Periwatch",
		SendGrid:  SendGridConfig{APIKey: "SG.env"},
		SMTP:      SMTPConfig{Port: 587, TLSPolicy: "mandatory"},
	}
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	cfg.Sanitize()

	if !reflect.DeepEqual(cfg.Providers, []string{ProviderResend, ProviderSendGrid}) {
		t.Errorf("unexpected providers %v", cfg.Providers)
	}
	if cfg.From != "reports@example.com" || cfg.FromName != "Periwatch" {
		t.Errorf("unexpected sender %q %q", cfg.From, cfg.FromName)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Timeout)
	}
	if cfg.Resend.APIKey != "re_file" || cfg.SendGrid.APIKey != "SG.env" {
		t.Errorf("unexpected api keys resend=%q sendgrid=%q", cfg.Resend.APIKey, cfg.SendGrid.APIKey)
	}
	if cfg.SMTP.Host != "relay.example.com" || cfg.SMTP.Port != 2525 || cfg.SMTP.TLSPolicy != "mandatory" {
		t.Errorf("unexpected smtp config %+v", cfg.SMTP)
	}
}

func TestDeliveryConfig_LoadFileErrors(t *testing.T) {
	var cfg DeliveryConfig
	if err := cfg.LoadFile(""); err == nil {
		t.Error("expected error for empty path")
	}
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "typo.yaml")
	if err := os.WriteFile(path, []byte("provders: [smtp]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := cfg.LoadFile(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}
	if cfg.PrometheusNamespace != "brief" {
		t.Fatalf("expected default prometheus namespace, got %q", cfg.PrometheusNamespace)
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		StatsdPrefix:  ".brief.",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.StatsdPrefix != "brief" {
		t.Fatalf("expected prefix dots trimmed, got %q", cfg.StatsdPrefix)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
			Username:   "",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
			Source:     "",
			Component:  "",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.Slack.Username != "periwatch-brief" {
		t.Fatalf("expected slack username default, got %q", cfg.Slack.Username)
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "periwatch-brief" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}
	if cfg.PagerDuty.Component != "continuation" {
		t.Fatalf("expected pagerduty component default, got %q", cfg.PagerDuty.Component)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: "abc",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled when top-level notifications disabled")
	}
}
