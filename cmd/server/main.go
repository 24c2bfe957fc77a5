// Package main is the entry point for the fraudguard API server.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudguard/internal/config"
	"fraudguard/internal/handlers"
	"fraudguard/internal/lock"
	"fraudguard/internal/logging"
	"fraudguard/internal/repositories"
	"fraudguard/internal/repositories/cache"
	"fraudguard/internal/routes"
	"fraudguard/internal/services/network"
	"fraudguard/internal/services/pattern"
	"fraudguard/internal/services/risk"
	"fraudguard/internal/services/transaction"
	"fraudguard/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	checks := map[string]handlers.Check{}

	tel, err := telemetry.New(context.Background(), cfg.Telemetry, cfg.Env, zl.Named("telemetry"))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			zl.Warn("failed to flush telemetry", zap.Error(err))
		}
	}()

	txMetrics, err := transaction.NewOtelMetricsCollector(tel.MeterProvider.Meter("fraudguard/services/transaction"))
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg.Database, zl)
	if err != nil {
		return err
	}
	if db != nil {
		checks["database"] = func(ctx context.Context) error { return repositories.Ping(ctx, db) }
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					zl.Warn("failed to close database connection", zap.Error(err))
				}
			}
		}()
	}

	var (
		ttlStore cache.Store
		locker   lock.Locker
	)
	lockOpts := lock.DefaultOptions()
	if cfg.Ledger.LockExpiry > 0 {
		lockOpts.Expiry = cfg.Ledger.LockExpiry
	}
	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		cacheService := cache.NewCacheService(client, cfg.Redis.CacheTTL)
		defer func() {
			if err := cacheService.Close(); err != nil {
				zl.Warn("failed to close redis connection", zap.Error(err))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := cacheService.HealthCheck(ctx)
		cancel()
		if err != nil {
			return err
		}

		ttlStore = cacheService
		locker = lock.NewRedisLocker(client, lockOpts, zl.Named("lock"))
		checks["redis"] = cacheService.HealthCheck
		zl.Info("using redis for cache and account locks", zap.String("addr", cfg.Redis.Addr()))
	} else {
		ttlStore = cache.NewMemoryCache(cache.DefaultMaxEntries, cfg.Redis.CacheTTL)
		locker = lock.NewLocalLocker()
		zl.Warn("redis not configured, cache and account locks are process-local")
	}

	engine, err := risk.NewEngine(risk.Policy{
		BlockThreshold:  cfg.Risk.BlockThreshold,
		ReviewThreshold: cfg.Risk.ReviewThreshold,
	})
	if err != nil {
		return err
	}

	var scorer risk.Scorer
	if cfg.Risk.ScorerURL != "" {
		httpScorer := risk.NewHTTPScorer(risk.HTTPScorerConfig{
			URL:     cfg.Risk.ScorerURL,
			Timeout: cfg.Risk.ScorerTimeout,
		}, zl.Named("scorer"))
		checks["risk_scorer"] = httpScorer.HealthCheck
		scorer = httpScorer
	} else {
		zl.Warn("no risk scorer configured, every transaction gets the static score",
			zap.Float64("score", cfg.Risk.StaticScore))
		scorer = risk.NewStaticScorer(risk.Scored(cfg.Risk.StaticScore))
	}

	txService := transaction.NewService(store, locker, engine, scorer, transaction.Config{
		MinBalance:      &cfg.Ledger.MinBalance,
		DefaultCurrency: cfg.Ledger.Currency,
		Metrics:         txMetrics,
		TracerProvider:  tel.TracerProvider,
	}, zl.Named("transaction"))

	netService := network.NewService(store, ttlStore, network.NewBuilder(pattern.NewExtractor()), cfg.Graph, zl.Named("network"))

	app := fiber.New(fiber.Config{
		AppName:      "fraudguard",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Graph.BuildTimeout + 5*time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Transactions: txService,
		Network:      netService,
		Cache:        ttlStore,
		Checks:       checks,
		Server:       cfg.Server,
		Auth:         cfg.Auth,
		Logger:       zl,
	})

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		errCh <- app.Listen(":" + cfg.Server.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// openStore returns the configured store. db is nil for the memory driver.
func openStore(cfg config.DatabaseConfig, zl *zap.Logger) (repositories.Store, *gorm.DB, error) {
	if cfg.Driver == "memory" {
		zl.Warn("using in-memory store, data is lost on exit")
		return repositories.NewMemoryStore(), nil, nil
	}

	db, err := repositories.Open(cfg, zl)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repositories.Ping(ctx, db); err != nil {
		return nil, nil, err
	}
	zl.Info("connected to database", zap.String("host", cfg.Host), zap.String("name", cfg.Name))
	return repositories.NewGormStore(db), db, nil
}
