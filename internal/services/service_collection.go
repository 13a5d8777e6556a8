// file: internal/services/service_collection.go
package services

import (
	"alphahub/internal/cache"
	"alphahub/internal/config"
	"alphahub/internal/database"
	"alphahub/internal/events"
	"alphahub/internal/repositories"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ServiceCollection holds the rewards engine's services with dependency
// injection
type ServiceCollection struct {
	// Core Services
	BadgeService  BadgeService  `json:"-"`
	PointsService PointsService `json:"-"`

	// Shared evaluator, exposed for the sweep worker
	Evaluator CriteriaEvaluator `json:"-"`

	// Repository Collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure Components
	Cache     cache.Cache       `json:"-"`
	EventBus  events.EventBus   `json:"-"`
	Logger    *zap.Logger       `json:"-"`
	Config    *config.Config    `json:"-"`
	DBManager *database.Manager `json:"-"`

	startTime   time.Time
	initialized bool
}

// NewServiceCollection creates a new service collection
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
		startTime: time.Now(),
	}

	// Initialize in dependency order
	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	collection.initializeRepositories()
	collection.initializeServices()

	collection.initialized = true
	logger.Info("Service collection initialized successfully")

	return collection, nil
}

// ===============================
// INITIALIZATION
// ===============================

func (sc *ServiceCollection) initializeInfrastructure() error {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Provider = sc.Config.Cache.Provider
	cacheConfig.TTL = sc.Config.Cache.TTL
	if sc.Config.Cache.RedisURL != "" {
		cacheConfig.RedisURL = sc.Config.Cache.RedisURL
		cacheConfig.RedisPassword = sc.Config.Cache.RedisPassword
		cacheConfig.RedisDB = sc.Config.Cache.RedisDB
	}

	cacheImpl, err := cache.NewCache(cacheConfig, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = cacheImpl

	sc.EventBus = events.NewEventBus(events.DefaultEventBusConfig(), sc.Logger)
	if err := sc.EventBus.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	return nil
}

func (sc *ServiceCollection) initializeRepositories() {
	sc.Repositories = repositories.NewCollection(sc.DBManager, sc.Logger)
}

func (sc *ServiceCollection) initializeServices() {
	repos := sc.Repositories

	sc.Evaluator = NewCriteriaEvaluator(repos.Activity, repos.Users, sc.Logger)

	sc.BadgeService = NewBadgeService(
		repos.Badges,
		repos.UserBadges,
		repos.Users,
		sc.Evaluator,
		sc.Cache,
		sc.EventBus,
		sc.Logger,
	)

	sc.PointsService = NewPointsService(
		repos.ScoringRules,
		repos.Engagements,
		repos.Activity,
		repos.Users,
		sc.EventBus,
		sc.Logger,
	)
}

// ===============================
// LIFECYCLE
// ===============================

// HealthCheck verifies the collection's infrastructure dependencies.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) error {
	if !sc.initialized {
		return fmt.Errorf("service collection not initialized")
	}
	if err := sc.DBManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	if err := sc.Cache.Health(ctx); err != nil {
		return fmt.Errorf("cache unhealthy: %w", err)
	}
	return nil
}

// Uptime returns how long the collection has been running.
func (sc *ServiceCollection) Uptime() time.Duration {
	return time.Since(sc.startTime)
}

// Shutdown stops background components in reverse dependency order.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	if sc.EventBus != nil {
		if err := sc.EventBus.Stop(ctx); err != nil {
			sc.Logger.Warn("Event bus shutdown error", zap.Error(err))
		}
	}

	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			sc.Logger.Warn("Cache shutdown error", zap.Error(err))
		}
	}

	sc.initialized = false
	return nil
}
