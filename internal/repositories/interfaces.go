// file: internal/repositories/interfaces.go
package repositories

import (
	"alphahub/internal/models"
	"context"
	"errors"
	"time"
)

// ===============================
// SENTINEL ERRORS
// ===============================

// State-conflict sentinels surfaced by repositories. The service layer maps
// them onto its own error taxonomy; none of them indicate corruption.
var (
	ErrAwardNotFound       = errors.New("award not found")
	ErrAlreadyPinned       = errors.New("badge already pinned")
	ErrNotPinned           = errors.New("badge not pinned")
	ErrPinLimitExceeded    = errors.New("pin limit exceeded")
	ErrPinSlotConflict     = errors.New("pin slot conflict")
	ErrDuplicateEngagement = errors.New("duplicate engagement")
)

// ===============================
// REPOSITORY INTERFACES
// ===============================

// BadgeRepository reads the administrator-maintained badge catalogue. The
// engine never writes it.
type BadgeRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Badge, error)
	GetByKey(ctx context.Context, key string) (*models.Badge, error)
	GetActiveByTypes(ctx context.Context, badgeTypes []string, category string) ([]*models.Badge, error)
	List(ctx context.Context, category string, params models.PaginationParams) (*models.PaginatedResponse[*models.Badge], error)
}

// UserBadgeRepository owns award rows and the pin-slot state machine.
type UserBadgeRepository interface {
	// Insert attempts to create an award. It returns false with a nil error
	// when the (user, badge) pair already exists; the unique constraint is
	// the idempotency guarantee, not a prior read.
	Insert(ctx context.Context, award *models.UserBadge) (bool, error)

	GetByUser(ctx context.Context, userID int64, visibleOnly bool) ([]*models.UserBadge, error)
	GetHeldBadgeIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	GetPinned(ctx context.Context, userID int64) ([]*models.UserBadge, error)

	// Pin assigns the lowest free slot inside a serialized read-modify-write.
	// It returns ErrAlreadyPinned, ErrPinLimitExceeded, ErrAwardNotFound, or
	// ErrPinSlotConflict when a concurrent pin won the slot race.
	Pin(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)
	Unpin(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)
	ToggleVisibility(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error)

	GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error)

	// Delete is administrative removal, the only way an award ever goes away.
	Delete(ctx context.Context, userID, badgeID int64) error
}

// ScoringRuleRepository reads the administrator-maintained engagement scoring
// catalogue.
type ScoringRuleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.EngagementCriteria, error)
	GetActiveByKinds(ctx context.Context, kinds []string) ([]*models.EngagementCriteria, error)
}

// EngagementRepository owns engagement records and the measurements the
// points engine's gates and bonuses read.
type EngagementRepository interface {
	// Create persists an engagement. It returns ErrDuplicateEngagement when
	// the (user, post) pair already exists.
	Create(ctx context.Context, engagement *models.Engagement) error

	GetByUserAndPost(ctx context.Context, userID, postID int64) (*models.Engagement, error)
	ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Engagement], error)

	CountByUser(ctx context.Context, userID int64) (int64, error)
	VerifiedCounts(ctx context.Context, userID int64) (verified, total int64, err error)
	CountForRuleSince(ctx context.Context, userID, ruleID int64, since time.Time) (int64, error)
	LastForRuleAt(ctx context.Context, userID, ruleID int64) (*time.Time, error)
}

// ActivityRepository is the activity aggregator: read-only scalar
// measurements over the raw activity tables the rest of the platform owns.
type ActivityRepository interface {
	ContentCount(ctx context.Context, userID int64, module, contentType string, windowDays int) (int64, error)
	MaxPostLikes(ctx context.Context, userID int64, module string, windowDays int) (int64, error)
	SumPostLikes(ctx context.Context, userID int64, module string, windowDays int) (int64, error)
	MaxPostComments(ctx context.Context, userID int64, module string, windowDays int) (int64, error)
	SumPostComments(ctx context.Context, userID int64, module string, windowDays int) (int64, error)
	CourseCompletions(ctx context.Context, userID int64) (int64, error)
	RatingCount(ctx context.Context, userID int64) (int64, error)

	// AverageRating re-reads all ratings on the user's courses. It is not
	// atomic with respect to concurrent rating writes; callers treat it as
	// best-effort.
	AverageRating(ctx context.Context, userID int64) (float64, error)

	GetPostRef(ctx context.Context, postID int64) (*models.PostRef, error)
	RecentlyActiveUserIDs(ctx context.Context, since time.Time, limit int) ([]int64, error)
}

// UserRepository is the engine's narrow view of users plus the atomic stat
// counters awards and engagements feed.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	IncrementReputation(ctx context.Context, userID int64, delta int) error
	IncrementContributions(ctx context.Context, userID int64, delta int) error
}
