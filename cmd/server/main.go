package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/gardenledger/internal/adapter/http"
	"github.com/iho/gardenledger/internal/adapter/http/handler"
	"github.com/iho/gardenledger/internal/adapter/http/middleware"
	"github.com/iho/gardenledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/gardenledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gardenledger/internal/adapter/repository/redis"
	"github.com/iho/gardenledger/internal/adapter/snapshot"
	"github.com/iho/gardenledger/internal/domain"
	"github.com/iho/gardenledger/internal/infrastructure/chart"
	"github.com/iho/gardenledger/internal/infrastructure/config"
	"github.com/iho/gardenledger/internal/infrastructure/idgen"
	"github.com/iho/gardenledger/internal/infrastructure/logger"
	"github.com/iho/gardenledger/internal/infrastructure/metrics"
	"github.com/iho/gardenledger/internal/infrastructure/postgres"
	"github.com/iho/gardenledger/internal/infrastructure/redis"
	"github.com/iho/gardenledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := buildApp(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer a.close()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go a.sweep(ctx, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// app is the wired server before it starts listening.
type app struct {
	handler     http.Handler
	ledger      *usecase.LedgerUseCase
	rateLimiter *middleware.RateLimiter
	drafts      *memory.DraftStore // nil when drafts live in redis
	closers     []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// sweep periodically drops idle rate limiters and expired in-memory drafts.
func (a *app) sweep(ctx context.Context, logger zerolog.Logger) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweepOnce(logger)
		}
	}
}

func (a *app) sweepOnce(logger zerolog.Logger) {
	if n := a.rateLimiter.CleanupLimiters(limiterIdleTimeout); n > 0 {
		logger.Debug().Int("removed", n).Msg("rate limiters cleaned up")
	}

	if a.drafts != nil {
		if n := a.drafts.Sweep(); n > 0 {
			logger.Debug().Int("removed", n).Msg("expired drafts cleaned up")
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}

	accounts, err := chart.Load(cfg.ChartFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart of accounts: %w", err)
	}
	logger.Info().Int("accounts", len(accounts.Accounts())).Str("file", cfg.ChartFile).Msg("chart of accounts loaded")

	checks := map[string]handler.Pinger{}

	repo, err := a.ledgerRepository(ctx, cfg, accounts, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	checks[cfg.StoreDriver] = repo

	memDrafts := memory.NewDraftStore()

	var (
		drafts      usecase.DraftStore = memDrafts
		idempotency usecase.IdempotencyStore
	)

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		logger.Info().Msg("connected to redis")

		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})

		idempotency = redisRepo.NewIdempotencyStore(client)
		if cfg.DraftStore == config.StoreRedis {
			drafts = redisRepo.NewDraftStore(client)
			memDrafts = nil
		}
	}
	a.drafts = memDrafts

	m := metrics.New(reg)
	ids := idgen.NewULIDGenerator()

	opts := []usecase.LedgerOption{
		usecase.WithLogger(logger),
		usecase.WithMetrics(m),
	}
	if !cfg.StrictBalance {
		opts = append(opts, usecase.WithLenientCommit())
		logger.Warn().Msg("lenient commit mode: unbalanced journals will be accepted")
	}

	a.ledger = usecase.NewLedgerUseCase(repo, accounts, ids, opts...)
	journals := usecase.NewJournalUseCase(a.ledger, drafts, ids, cfg.DraftTTL)

	a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:    handler.NewLedgerHandler(a.ledger),
		JournalHandler:   handler.NewJournalHandler(journals),
		SnapshotHandler:  handler.NewSnapshotHandler(a.ledger, snapshot.NewCodec(ids)),
		HealthHandler:    handler.NewHealthHandler(checks),
		Logger:           logger,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		RateLimiter:      a.rateLimiter,
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
	})

	return a, nil
}

// ledgerRepository opens the configured committed-state store.
func (a *app) ledgerRepository(ctx context.Context, cfg *config.Config, accounts *domain.ChartOfAccounts, logger zerolog.Logger) (usecase.LedgerRepository, error) {
	if cfg.StoreDriver != config.StorePostgres {
		logger.Info().Msg("using in-memory ledger store")
		return memory.NewLedgerRepository(accounts), nil
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	logger.Info().Msg("connected to postgres")

	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
		return nil, err
	}

	repo := postgresRepo.NewLedgerRepository(pool, postgresRepo.NewRetrier(logger, postgresRepo.WithMaxRetries(cfg.DatabaseCommitRetries)))
	if err := repo.EnsureAccounts(ctx, accounts); err != nil {
		return nil, fmt.Errorf("failed to seed chart accounts: %w", err)
	}

	return repo, nil
}
