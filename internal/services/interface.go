// file: internal/services/interface.go
package services

import (
	"alphahub/internal/models"
	"context"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// BadgeService is the award manager: badge-checking sweeps, idempotent
// awarding, the pin-slot state machine, and profile stats.
type BadgeService interface {
	// Sweeps. Each is resilient per-rule: one misconfigured or failing rule
	// never aborts evaluation of the rest.
	CheckRoleBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	CheckActivityBadges(ctx context.Context, userID int64, module string) ([]*models.UserBadge, error)
	CheckAllBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error)

	// Award attempts an idempotent award. It returns false with a nil error
	// when the user already holds the badge.
	Award(ctx context.Context, userID, badgeID int64, provenance string) (bool, error)

	// Pin-slot state machine. At most three pinned awards per user, each in a
	// distinct slot in {1,2,3}; pinning takes the lowest free slot.
	PinBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)
	UnpinBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)
	ToggleVisibility(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)

	// Reads
	GetUserBadges(ctx context.Context, userID int64, visibleOnly bool) ([]*models.UserBadge, error)
	GetPinnedBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	GetBadgeStats(ctx context.Context, userID int64) (*models.BadgeStats, error)
	ListBadges(ctx context.Context, category string, params models.PaginationParams) (*models.PaginatedResponse[*models.Badge], error)

	// RemoveAward is administrative removal, the only deletion path.
	RemoveAward(ctx context.Context, userID, badgeID int64) error
}

// PointsService is the points engine: engagement scoring with full breakdown
// provenance, plus the pre-commit gates and the commit path.
type PointsService interface {
	// CalculatePoints computes a point total and breakdown without writing
	// anything, so it is safe to call for previews.
	CalculatePoints(ctx context.Context, req *CalculatePointsRequest) (*PointsResult, error)

	// Pre-commit gates. Both are pure reads; callers check them before
	// recording an engagement.
	CheckDailyLimit(ctx context.Context, userID, ruleID int64) (bool, error)
	CheckCooldown(ctx context.Context, userID, ruleID int64) (bool, error)

	// RecordEngagement is the commit path: recalculates, enforces the gates,
	// persists under the storage uniqueness constraint, and credits the
	// content author.
	RecordEngagement(ctx context.Context, req *RecordEngagementRequest) (*models.Engagement, error)

	GetEngagement(ctx context.Context, userID, postID int64) (*models.Engagement, error)
	ListEngagements(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Engagement], error)
}

// CriteriaEvaluator resolves one typed criterion against live aggregate
// activity. Pure read, no side effects.
type CriteriaEvaluator interface {
	Evaluate(ctx context.Context, userID int64, criteria *models.Criteria) (bool, error)
}
