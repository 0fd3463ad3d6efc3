package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/periwatch/brief-api/config"
	"github.com/periwatch/brief-api/internal/adapters/retention"
)

const defaultShutdownTimeout = 15 * time.Second

// RunConfig contains dependencies for running the service until shutdown.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger

	// Listener is optional; when nil the server listens on Config.HTTP.Addr.
	Listener net.Listener
}

// RunWithShutdown serves HTTP and runs the retention schedule until ctx is
// cancelled or SIGINT/SIGTERM arrives. It then stops accepting requests and
// waits up to the drain timeout for background continuations, logging the
// ids of any that are still running.
func RunWithShutdown(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("run config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server, err := NewHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}

	var runner *retention.Runner
	if rc := cfg.Config.Retention; rc.Enabled {
		runner, err = retention.NewRunner(retention.RunnerOptions{
			Cleaner:  cfg.Services.Retention,
			Schedule: rc.Schedule,
			MaxAge:   rc.MaxAge,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("build retention runner: %w", err)
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		var serveErr error
		if cfg.Listener != nil {
			serveErr = server.Serve(cfg.Listener)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})

	if runner != nil {
		g.Go(func() error { return runner.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(gctx),
			Server:  server,
			Config:  cfg.Config.HTTP,
			Logger:  logger,
		})
	})

	runErr := g.Wait()
	drainContinuations(cfg.Services, cfg.Config.Generation.DrainTimeout, logger)
	return runErr
}

func drainContinuations(services *ServiceContainer, timeout time.Duration, logger *slog.Logger) {
	n := len(services.Continuations.InFlight())
	if n == 0 {
		return
	}
	logger.Info("waiting for background continuations", "count", n, "timeout", timeout.String())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	remaining, err := services.Continuations.Drain(ctx)
	if err != nil {
		logger.Warn("shutdown drain timed out; background deliveries abandoned",
			"job_ids", remaining,
			"count", len(remaining),
		)
		return
	}
	logger.Info("background continuations drained")
}
