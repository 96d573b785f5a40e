// Command swarmd runs the prediction swarm HTTP service: a fan-out
// orchestrator over LLM provider agents, a weighted consensus calculator,
// and a settlement-driven leaderboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oddsflow/swarm/infrastructure/cache"
	"github.com/oddsflow/swarm/infrastructure/market"
	"github.com/oddsflow/swarm/infrastructure/observability"
	"github.com/oddsflow/swarm/infrastructure/providers"
	"github.com/oddsflow/swarm/infrastructure/storage"
	"github.com/oddsflow/swarm/internal/config"
	"github.com/oddsflow/swarm/internal/ports"
	"github.com/oddsflow/swarm/internal/swarm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swarmd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewPrometheusMetrics(nil)

	leaderboardStore, predictionStore, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	resultCache := buildCache(cfg, logger)

	catalog, err := providers.LoadCatalog(cfg.AgentCatalogPath)
	if err != nil {
		return err
	}
	adapters, err := providers.BuildAdapters(catalog, providers.RegistryConfig{
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		Timeout:           cfg.AdapterTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		MaxAttempts:       cfg.MaxAttempts,
		RetryBaseDelay:    cfg.RetryBaseDelay,
	}, metrics, logger)
	if err != nil {
		return err
	}

	reader := swarm.NewLeaderboardReader(leaderboardStore, cfg.LeaderboardTTL)

	orchestrator, err := swarm.NewOrchestrator(swarm.OrchestratorConfig{
		Adapters:       adapters,
		Leaderboard:    reader,
		Cache:          resultCache,
		ContextBuilder: market.NewContextBuilder(),
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	settler, err := swarm.NewSettler(predictionStore, leaderboardStore, reader, metrics, logger)
	if err != nil {
		return err
	}

	srv := &server{
		orchestrator: orchestrator,
		settler:      settler,
		predictions:  predictionStore,
		leaderboard:  reader,
		metrics:      metrics,
		logger:       logger,
		cacheTTL:     cfg.CacheTTL,
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.Int("agents", len(adapters)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildStores selects Postgres-backed stores when a DSN is configured and
// in-memory stores otherwise. The returned cleanup closes the pool.
func buildStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.LeaderboardStore, ports.PredictionStore, func(), error) {
	if cfg.PostgresDSN == "" {
		logger.Warn("no postgres DSN configured, using in-memory stores")
		return storage.NewMemoryLeaderboardStore(), storage.NewMemoryPredictionStore(), func() {}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	cleanup := func() { _ = db.Close() }
	return storage.NewPostgresLeaderboardStore(db), storage.NewPostgresPredictionStore(db), cleanup, nil
}

// buildCache selects Redis when configured and the in-process cache
// otherwise.
func buildCache(cfg *config.Config, logger *zap.Logger) ports.ResultCache {
	if cfg.RedisAddr == "" {
		logger.Warn("no redis address configured, using in-process result cache")
		return cache.NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return cache.NewRedisCache(client, logger)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg.Level = level

	return zcfg.Build()
}
