// file: cmd/sweeper/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alphahub/internal/config"
	"alphahub/internal/database"
	"alphahub/internal/services"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting rewards sweep worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	// Initialize database
	dbManager, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize services
	collection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	worker := newSweepWorker(collection, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.run(ctx)

	// Operational endpoints
	opsServer := &http.Server{
		Addr:    cfg.Worker.ListenAddr,
		Handler: newOpsRouter(collection, dbManager),
	}

	go func() {
		logger.Info("Operational endpoints listening",
			zap.String("address", cfg.Worker.ListenAddr),
		)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start operational server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down sweep worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Operational server shutdown error", zap.Error(err))
	}
	if err := collection.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Service collection shutdown error", zap.Error(err))
	}

	logger.Info("Sweep worker stopped")
}

// ===============================
// SWEEP WORKER
// ===============================

// sweepWorker periodically re-checks recently active users for badges they
// have newly become eligible for.
type sweepWorker struct {
	services *services.ServiceCollection
	cfg      *config.Config
	logger   *zap.Logger
}

func newSweepWorker(collection *services.ServiceCollection, cfg *config.Config, logger *zap.Logger) *sweepWorker {
	return &sweepWorker{
		services: collection,
		cfg:      cfg,
		logger:   logger,
	}
}

func (w *sweepWorker) run(ctx context.Context) {
	interval := w.cfg.Engine.SweepInterval
	w.logger.Info("Sweep loop started",
		zap.Duration("interval", interval),
		zap.Int("batch_size", w.cfg.Engine.SweepBatchSize),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sweep shortly after boot rather than a full interval later.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Sweep loop stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *sweepWorker) sweep(ctx context.Context) {
	since := time.Now().Add(-w.cfg.Engine.ActivityWindow)
	userIDs, err := w.services.Repositories.Activity.RecentlyActiveUserIDs(
		ctx, since, w.cfg.Engine.SweepBatchSize)
	if err != nil {
		w.logger.Error("Failed to list recently active users", zap.Error(err))
		return
	}

	start := time.Now()
	var checked, failed int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}

		operation := func() error {
			_, err := w.services.BadgeService.CheckAllBadges(ctx, userID)
			return err
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(), 2), ctx)

		if err := backoff.Retry(operation, policy); err != nil {
			failed++
			w.logger.Warn("Badge check failed for user",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		checked++
	}

	w.logger.Info("Sweep cycle completed",
		zap.Int("users_checked", checked),
		zap.Int("users_failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
}

// ===============================
// OPERATIONAL ENDPOINTS
// ===============================

func newOpsRouter(collection *services.ServiceCollection, dbManager *database.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := collection.HealthCheck(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "healthy",
			"uptime": collection.Uptime().String(),
		})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		health := dbManager.Health(req.Context())
		status := http.StatusOK
		if health.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		payload := map[string]any{
			"database":  dbManager.Metrics(),
			"event_bus": collection.EventBus.Stats(),
		}
		if cacheStats, err := collection.Cache.Stats(req.Context()); err == nil {
			payload["cache"] = cacheStats
		}
		writeJSON(w, http.StatusOK, payload)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("GO_ENV")
	var config zap.Config

	switch env {
	case "production":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
