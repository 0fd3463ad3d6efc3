package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/periwatch/brief-api/config"
	httpx "github.com/periwatch/brief-api/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the HTTP server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := cfg.Config.HTTP

	services := httpx.RouterServices{
		Generation:         cfg.Services.Generation,
		Logger:             logger,
		CompressionEnabled: httpCfg.CompressionEnabled,
		CompressionLevel:   httpCfg.CompressionLevel,
	}
	if p := cfg.Services.Observability.Prometheus; p != nil {
		services.Metrics = p.Handler()
	}
	if tracker := cfg.Services.Continuations; tracker != nil {
		services.InFlight = func() int { return len(tracker.InFlight()) }
	}

	handler, err := httpx.NewRouter(services)
	if err != nil {
		return nil, err
	}
	if httpCfg.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", httpCfg.CompressionLevel)
	}

	// Guard against empty addr to avoid listening on Go default
	addr := httpCfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: httpCfg.ReadHeaderTimeout,
		WriteTimeout:      httpCfg.WriteTimeout,
		IdleTimeout:       httpCfg.IdleTimeout,
	}, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Config  config.HTTPConfig
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down HTTP server")

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := cfg.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
