// file: internal/repositories/collection.go
package repositories

import (
	"alphahub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Badges       BadgeRepository
	UserBadges   UserBadgeRepository
	ScoringRules ScoringRuleRepository
	Engagements  EngagementRepository
	Activity     ActivityRepository
	Users        UserRepository

	// Database and logger for custom operations
	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) *Collection {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Collection{
		Badges:       NewBadgeRepository(db, logger),
		UserBadges:   NewUserBadgeRepository(db, logger),
		ScoringRules: NewScoringRuleRepository(db, logger),
		Engagements:  NewEngagementRepository(db, logger),
		Activity:     NewActivityRepository(db, logger),
		Users:        NewUserRepository(db, logger),
		db:           db,
		logger:       logger,
	}
}
