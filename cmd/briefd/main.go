package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/periwatch/brief-api/config"
	"github.com/periwatch/brief-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.ApplyLogLevel(cfg.LogLevel)

	logStartupInfo(ctx, logger, &cfg)

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config: &cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close services failed", "error", cerr)
		}
	}()

	return bootstrap.RunWithShutdown(ctx, &bootstrap.RunConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting briefd",
		"addr", cfg.HTTP.Addr,
		"default_deadline", cfg.Generation.DefaultDeadline.String(),
		"max_deadline", cfg.Generation.MaxDeadline.String(),
		"compression", cfg.Compression.Enabled,
		"providers", cfg.Delivery.EnabledProviders(),
		"remote_renderer", cfg.Renderer.Remote(),
		"retention_schedule", cfg.Retention.Schedule,
	)
}
