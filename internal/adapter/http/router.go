package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gardenledger/internal/adapter/http/handler"
	"github.com/iho/gardenledger/internal/adapter/http/middleware"
	"github.com/iho/gardenledger/internal/infrastructure/metrics"
	"github.com/iho/gardenledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler   *handler.LedgerHandler
	JournalHandler  *handler.JournalHandler
	SnapshotHandler *handler.SnapshotHandler
	HealthHandler   *handler.HealthHandler

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler

	RateLimiter      *middleware.RateLimiter
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.LedgerHandler.Accounts)
			r.Get("/{name}/entries", cfg.LedgerHandler.AccountEntries)
		})

		r.Get("/balances", cfg.LedgerHandler.Balances)
		r.Get("/summary", cfg.LedgerHandler.Summary)
		r.Get("/ledger/consistency", cfg.LedgerHandler.Consistency)

		r.Route("/journals", func(r chi.Router) {
			r.Get("/", cfg.LedgerHandler.Journals)

			r.Route("/drafts", func(r chi.Router) {
				r.Post("/", cfg.JournalHandler.Open)
				r.Get("/{draftID}", cfg.JournalHandler.Get)
				r.Delete("/{draftID}", cfg.JournalHandler.Discard)
				r.Post("/{draftID}/entries", cfg.JournalHandler.AddEntry)
				r.Post("/{draftID}/select", cfg.JournalHandler.Select)
				r.Post("/{draftID}/commit", cfg.JournalHandler.Commit)
			})
		})

		r.Get("/snapshot", cfg.SnapshotHandler.Export)
		r.Put("/snapshot", cfg.SnapshotHandler.Import)
	})

	return r
}
