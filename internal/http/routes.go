package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/periwatch/brief-api/internal/domain/model"
)

// GenerationAPI is the service surface exposed over HTTP.
type GenerationAPI interface {
	Generate(ctx context.Context, params model.GenerateParams) (model.GenerateResult, error)
	GetStatus(ctx context.Context, id string) (model.JobStatusView, error)
	Cleanup(ctx context.Context, maxAge time.Duration) (model.CleanupResult, error)
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Generation GenerationAPI // Required
	Metrics    http.Handler  // Optional: Prometheus scrape handler
	Logger     *slog.Logger  // Optional: request logging
	InFlight   func() int    // Optional: background delivery count for /healthz

	// CompressionEnabled gzips JSON responses at CompressionLevel.
	CompressionEnabled bool
	CompressionLevel   int
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(Logging(logger.With("component", "http")))
	r.Use(middleware.Recoverer)
	if services.CompressionEnabled {
		gz, err := Compression(services.CompressionLevel)
		if err != nil {
			return nil, err
		}
		r.Use(gz)
	}

	gen := &GenerateHandlers{Svc: services.Generation}
	tasks := &TaskHandlers{Svc: services.Generation}

	r.Route("/api", func(r chi.Router) {
		r.Get("/generate-pdf", gen.Generate)
		r.Post("/generate-pdf", gen.Generate)
		r.Get("/task-status/{id}", tasks.Status)
		r.Post("/cleanup-tasks", tasks.Cleanup)
	})

	health := healthHandler(services.InFlight)
	r.Get("/healthz", health)
	r.Head("/healthz", health)
	if services.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", services.Metrics)
	}

	return r, nil
}
