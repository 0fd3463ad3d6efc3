package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/periwatch/brief-api/config"
	"github.com/periwatch/brief-api/internal/adapters/mupdf"
	"github.com/periwatch/brief-api/internal/compress"
	"github.com/periwatch/brief-api/internal/core"
	"github.com/periwatch/brief-api/internal/data"
	"github.com/periwatch/brief-api/internal/delivery"
	"github.com/periwatch/brief-api/internal/delivery/resend"
	"github.com/periwatch/brief-api/internal/delivery/sendgrid"
	"github.com/periwatch/brief-api/internal/delivery/smtp"
	"github.com/periwatch/brief-api/internal/domain/job"
	"github.com/periwatch/brief-api/internal/observability/notify/pagerduty"
	"github.com/periwatch/brief-api/internal/observability/notify/slack"
	"github.com/periwatch/brief-api/internal/observability/prom"
	"github.com/periwatch/brief-api/internal/observability/statsd"
	"github.com/periwatch/brief-api/internal/pdf"
	"github.com/periwatch/brief-api/internal/service"
	"github.com/periwatch/brief-api/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Registry      *data.JobRegistry
	Generation    *service.GenerationService
	Retention     *service.RetentionService
	Continuations *service.ContinuationTracker
	Providers     []string
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// Metrics fans out to every enabled sink; nil when none is enabled.
	Metrics         statsd.Sink
	Prometheus      *prom.Sink
	StatsD          *statsd.Client
	FailureNotifier *failurenotifier.Service
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger

	// Optional overrides for tests.
	Renderer   core.Renderer
	Rasterizer compress.Rasterizer
	Providers  []delivery.Provider
}

// NewServices wires the registry, renderers, compression, delivery cascade and
// the generation services from configuration.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(logger, cfg)
	registry := data.NewJobRegistry(data.JobRegistryOptions{})

	rasterizer := deps.Rasterizer
	if rasterizer == nil {
		rasterizer = mupdf.New()
	}
	renderer, err := buildRenderer(deps, rasterizer, logger)
	if err != nil {
		return nil, err
	}

	var compressor core.Compressor
	if cfg.Compression.Enabled {
		compressor = compress.New(compress.Options{
			Rasterizer: rasterizer,
			Scale:      cfg.Compression.Scale,
			Logger:     logger,
			Metrics:    obs.Metrics,
		})
	}

	providers := deps.Providers
	if providers == nil {
		if providers, err = buildProviders(cfg.Delivery, logger); err != nil {
			return nil, err
		}
	}
	cascade := delivery.NewCascade(delivery.CascadeOptions{
		Providers: providers,
		Logger:    logger,
		Metrics:   obs.Metrics,
	})

	policy, err := job.NewDeadlinePolicy(cfg.Generation.DefaultDeadline, cfg.Generation.MaxDeadline)
	if err != nil {
		return nil, fmt.Errorf("deadline policy: %w", err)
	}

	supervisor, err := service.NewDeadlineSupervisor(service.DeadlineSupervisorOptions{
		Registry:            registry,
		Synthesizer:         pdf.NewSynthesizer(pdf.SynthesizerOptions{Logger: logger}),
		Compressor:          compressor,
		Quality:             cfg.Compression.Quality,
		CompressPlaceholder: cfg.Compression.CompressPlaceholder,
		Logger:              logger,
	})
	if err != nil {
		return nil, fmt.Errorf("deadline supervisor: %w", err)
	}

	continuations, err := service.NewContinuationTracker(service.ContinuationOptions{
		Registry:   registry,
		Deliverer:  cascade,
		Compressor: compressor,
		Notifier:   obs.FailureNotifier,
		Quality:    cfg.Compression.Quality,
		Logger:     logger,
		Metrics:    obs.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("continuation tracker: %w", err)
	}

	retention, err := service.NewRetentionService(service.RetentionServiceOptions{
		Registry: registry,
		Logger:   logger,
		Metrics:  obs.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("retention service: %w", err)
	}

	generation, err := service.NewGenerationService(service.GenerationServiceOptions{
		Registry:      registry,
		Renderer:      renderer,
		Supervisor:    supervisor,
		Continuations: continuations,
		Retention:     retention,
		Policy:        policy,
		Logger:        logger,
		Metrics:       obs.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("generation service: %w", err)
	}

	return &ServiceContainer{
		Registry:      registry,
		Generation:    generation,
		Retention:     retention,
		Continuations: continuations,
		Providers:     cascade.Providers(),
		Observability: obs,
	}, nil
}

// Close releases observability resources. Job records are dropped.
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	c.Registry.Close()
	if c.Observability.StatsD != nil {
		return c.Observability.StatsD.Close()
	}
	return nil
}

func buildRenderer(deps *ServiceDeps, rasterizer compress.Rasterizer, logger *slog.Logger) (core.Renderer, error) {
	if deps.Renderer != nil {
		return deps.Renderer, nil
	}
	rc := deps.Config.Renderer
	if !rc.Remote() {
		logger.Info("using built-in brief renderer")
		return pdf.NewBriefRenderer(pdf.BriefRendererOptions{}), nil
	}
	r, err := pdf.NewHTTPRenderer(pdf.HTTPRendererOptions{
		Endpoint:  rc.URL,
		Inspector: rasterizer,
		MaxBytes:  rc.MaxBytes,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("http renderer: %w", err)
	}
	logger.Info("using remote renderer", "endpoint", rc.URL)
	return r, nil
}

// buildProviders constructs the configured providers in cascade order,
// skipping those without credentials.
func buildProviders(cfg config.DeliveryConfig, logger *slog.Logger) ([]delivery.Provider, error) {
	providers := make([]delivery.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		if !cfg.Configured(name) {
			logger.Warn("delivery provider not configured, skipping", "provider", name)
			continue
		}
		p, err := buildProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("delivery provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		logger.Warn("no delivery providers configured; background deliveries will fail")
	}
	return providers, nil
}

//nolint:ireturn // providers are consumed through the delivery.Provider port.
func buildProvider(name string, cfg config.DeliveryConfig) (delivery.Provider, error) {
	switch name {
	case config.ProviderSMTP:
		return smtp.NewClient(smtp.Config{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			From:        cfg.From,
			FromName:    cfg.FromName,
			TLSPolicy:   cfg.SMTP.TLSPolicy,
			ImplicitTLS: cfg.SMTP.ImplicitTLS,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderSendGrid:
		return sendgrid.NewClient(sendgrid.Config{
			APIKey:    cfg.SendGrid.APIKey,
			FromEmail: cfg.From,
			FromName:  cfg.FromName,
			BaseURL:   cfg.SendGrid.BaseURL,
			Timeout:   cfg.Timeout,
		})
	case config.ProviderResend:
		return resend.NewClient(resend.Config{
			APIKey:  cfg.Resend.APIKey,
			From:    resendFrom(cfg.FromName, cfg.From),
			BaseURL: cfg.Resend.BaseURL,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func resendFrom(name, addr string) string {
	if name == "" || addr == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg *config.AppConfig) ObservabilityContainer {
	metricsCfg := cfg.Observability.Metrics
	obs := ObservabilityContainer{}
	sinks := make([]statsd.Sink, 0, 2)

	if metricsCfg.PrometheusEnabled {
		obs.Prometheus = prom.NewSink(prom.Options{
			Namespace: metricsCfg.PrometheusNamespace,
			Logger:    logger,
		})
		sinks = append(sinks, obs.Prometheus)
	}

	if metricsCfg.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: metricsCfg.StatsdAddress,
			Prefix:  metricsCfg.StatsdPrefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else if client != nil {
			obs.StatsD = client
			sinks = append(sinks, client)
		}
	}

	obs.Metrics = statsd.NewFanout(sinks...)
	obs.FailureNotifier = buildFailureNotifier(logger, cfg.Observability.Notifications)
	return obs
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger,
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			StatusURLPrefix: cfg.Slack.StatusURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger,
		Sinks:  sinks,
	})
}
