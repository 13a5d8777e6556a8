// file: internal/services/badge_service.go
package services

import (
	"alphahub/internal/cache"
	"alphahub/internal/events"
	"alphahub/internal/models"
	"alphahub/internal/repositories"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// badgeService implements BadgeService: sweeps, idempotent awarding, and the
// pin-slot state machine.
type badgeService struct {
	badgeRepo     repositories.BadgeRepository
	userBadgeRepo repositories.UserBadgeRepository
	userRepo      repositories.UserRepository
	evaluator     CriteriaEvaluator
	cache         cache.Cache
	events        events.EventBus
	logger        *zap.Logger
}

// NewBadgeService creates a new badge service.
func NewBadgeService(
	badgeRepo repositories.BadgeRepository,
	userBadgeRepo repositories.UserBadgeRepository,
	userRepo repositories.UserRepository,
	evaluator CriteriaEvaluator,
	cache cache.Cache,
	events events.EventBus,
	logger *zap.Logger,
) BadgeService {
	return &badgeService{
		badgeRepo:     badgeRepo,
		userBadgeRepo: userBadgeRepo,
		userRepo:      userRepo,
		evaluator:     evaluator,
		cache:         cache,
		events:        events,
		logger:        logger,
	}
}

// ===============================
// SWEEPS
// ===============================

// CheckRoleBadges awards every active role badge whose required roles include
// the user's current role. Runs whenever role membership changes.
func (s *badgeService) CheckRoleBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user for role sweep")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	badges, err := s.badgeRepo.GetActiveByTypes(ctx, []string{models.BadgeTypeRole}, "")
	if err != nil {
		return nil, NewInternalError("failed to load role badges")
	}

	var awarded []*models.UserBadge
	result := SweepResult{UserID: userID}
	for _, badge := range badges {
		result.Evaluated++
		if !badge.RequiredRoles.Contains(user.Role) {
			result.Skipped++
			continue
		}

		award, ok, err := s.awardBadge(ctx, userID, badge, ProvenanceRoleSweep)
		if err != nil {
			// One badge failing must not abort the rest of the sweep.
			result.Failed++
			s.logger.Warn("Role badge award failed, continuing sweep",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			result.Awarded++
			awarded = append(awarded, award)
		}
	}

	s.logSweep("role sweep completed", result)
	return awarded, nil
}

// CheckActivityBadges evaluates active activity and achievement badges scoped
// to one module and awards the eligible ones. An empty module sweeps every
// module.
func (s *badgeService) CheckActivityBadges(ctx context.Context, userID int64, module string) ([]*models.UserBadge, error) {
	if module != "" && !models.IsValidModule(module) {
		return nil, NewValidationError(fmt.Sprintf("unknown module %q", module), nil)
	}

	badges, err := s.badgeRepo.GetActiveByTypes(ctx,
		[]string{models.BadgeTypeActivity, models.BadgeTypeAchievement}, module)
	if err != nil {
		return nil, NewInternalError("failed to load activity badges")
	}

	held, err := s.userBadgeRepo.GetHeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load held badges")
	}

	var awarded []*models.UserBadge
	result := SweepResult{UserID: userID}
	for _, badge := range badges {
		result.Evaluated++
		if held[badge.ID] {
			result.Skipped++
			continue
		}

		eligible, err := s.evaluator.Evaluate(ctx, userID, badge.Criteria)
		if err != nil {
			result.Failed++
			s.logger.Warn("Criteria evaluation failed, continuing sweep",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
			continue
		}
		if !eligible {
			continue
		}

		award, ok, err := s.awardBadge(ctx, userID, badge, ProvenanceActivitySweep)
		if err != nil {
			result.Failed++
			s.logger.Warn("Activity badge award failed, continuing sweep",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			result.Awarded++
			awarded = append(awarded, award)
		}
	}

	s.logSweep("activity sweep completed", result)
	return awarded, nil
}

// CheckAllBadges runs the role sweep and the activity sweep across all
// modules. Exposed as the manual "re-check my badges" action and used by the
// periodic sweep worker.
func (s *badgeService) CheckAllBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	roleAwards, err := s.CheckRoleBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	activityAwards, err := s.CheckActivityBadges(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	return append(roleAwards, activityAwards...), nil
}

// ===============================
// AWARDING
// ===============================

// Award attempts an idempotent award of badgeID. Concurrent sweeps racing on
// the same pair resolve at the storage layer: the loser sees (false, nil),
// never an error and never a second notification.
func (s *badgeService) Award(ctx context.Context, userID, badgeID int64, provenance string) (bool, error) {
	badge, err := s.badgeRepo.GetByID(ctx, badgeID)
	if err != nil {
		return false, NewInternalError("failed to load badge")
	}
	if badge == nil {
		return false, NewNotFoundError("badge not found")
	}

	_, ok, err := s.awardBadge(ctx, userID, badge, provenance)
	return ok, err
}

func (s *badgeService) awardBadge(ctx context.Context, userID int64, badge *models.Badge, provenance string) (*models.UserBadge, bool, error) {
	award := &models.UserBadge{
		UserID:     userID,
		BadgeID:    badge.ID,
		EarnedFrom: provenance,
	}

	inserted, err := s.userBadgeRepo.Insert(ctx, award)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		return nil, false, nil
	}

	// Point grants ride on atomic increments so concurrent awards never lose
	// an update.
	if err := s.userRepo.IncrementReputation(ctx, userID, badge.PointsReward); err != nil {
		s.logger.Error("Failed to credit badge points",
			zap.Int64("user_id", userID),
			zap.Int64("badge_id", badge.ID),
			zap.Error(err),
		)
	}

	s.invalidateBadgeCaches(ctx, userID)

	if err := s.events.PublishAsync(ctx, events.NewBadgeAwardedEvent(
		userID, badge.ID, badge.Key, badge.Name, badge.Rarity, badge.PointsReward, provenance,
	)); err != nil {
		s.logger.Warn("Failed to publish badge awarded event",
			zap.Int64("user_id", userID),
			zap.Int64("badge_id", badge.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("Badge awarded",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badge.ID),
		zap.String("badge_key", badge.Key),
		zap.String("provenance", provenance),
	)

	award.Badge = badge
	return award, true, nil
}

// ===============================
// PIN-SLOT STATE MACHINE
// ===============================

// PinBadge pins an earned badge into the lowest free slot. Slot assignment is
// serialized per user inside the repository; if a concurrent pin still wins
// the slot race at write time, the operation retries briefly before giving
// up.
func (s *badgeService) PinBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	var pinned *models.UserBadge

	operation := func() error {
		award, err := s.userBadgeRepo.Pin(ctx, userID, badgeID)
		if err != nil {
			if errors.Is(err, repositories.ErrPinSlotConflict) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		pinned = award
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(10*time.Millisecond)), 3), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAwardNotFound):
			return nil, NewNotFoundError("badge not earned")
		case errors.Is(err, repositories.ErrAlreadyPinned):
			return nil, NewAlreadyPinnedError()
		case errors.Is(err, repositories.ErrPinLimitExceeded):
			return nil, NewPinLimitExceededError()
		default:
			s.logger.Error("Failed to pin badge",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badgeID),
				zap.Error(err),
			)
			return nil, NewInternalError("failed to pin badge")
		}
	}

	s.invalidateBadgeCaches(ctx, userID)

	if pinned.PinOrder != nil {
		if err := s.events.PublishAsync(ctx, events.NewBadgePinnedEvent(userID, badgeID, *pinned.PinOrder)); err != nil {
			s.logger.Warn("Failed to publish badge pinned event", zap.Error(err))
		}
	}

	return pinned, nil
}

// UnpinBadge clears the badge's slot and pin timestamp.
func (s *badgeService) UnpinBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	award, err := s.userBadgeRepo.Unpin(ctx, userID, badgeID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAwardNotFound):
			return nil, NewNotFoundError("badge not earned")
		case errors.Is(err, repositories.ErrNotPinned):
			return nil, NewNotPinnedError()
		default:
			return nil, NewInternalError("failed to unpin badge")
		}
	}

	s.invalidateBadgeCaches(ctx, userID)
	return award, nil
}

// ToggleVisibility flips whether an earned badge shows on the public profile.
// Pin state is independent: a pinned-but-hidden badge stays pinned.
func (s *badgeService) ToggleVisibility(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	award, err := s.userBadgeRepo.ToggleVisibility(ctx, userID, badgeID)
	if err != nil {
		if errors.Is(err, repositories.ErrAwardNotFound) {
			return nil, NewNotFoundError("badge not earned")
		}
		return nil, NewInternalError("failed to toggle badge visibility")
	}

	s.invalidateBadgeCaches(ctx, userID)
	return award, nil
}

// ===============================
// READS
// ===============================

// GetUserBadges retrieves a user's awards, optionally visible-only.
func (s *badgeService) GetUserBadges(ctx context.Context, userID int64, visibleOnly bool) ([]*models.UserBadge, error) {
	badges, err := s.userBadgeRepo.GetByUser(ctx, userID, visibleOnly)
	if err != nil {
		return nil, NewInternalError("failed to retrieve user badges")
	}
	return badges, nil
}

// GetPinnedBadges retrieves the user's pinned awards in slot order, cached.
func (s *badgeService) GetPinnedBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	cacheKey := fmt.Sprintf("badges:pinned:%d", userID)
	if cached, found := s.cache.Get(ctx, cacheKey); found {
		if pinned, ok := decodeCached[[]*models.UserBadge](cached); ok {
			return pinned, nil
		}
	}

	pinned, err := s.userBadgeRepo.GetPinned(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to retrieve pinned badges")
	}

	if err := s.cache.Set(ctx, cacheKey, pinned, 5*time.Minute); err != nil {
		s.logger.Warn("Failed to cache pinned badges", zap.Error(err))
	}
	return pinned, nil
}

// GetBadgeStats aggregates the user's visible awards by rarity and category
// and attaches the pinned set.
func (s *badgeService) GetBadgeStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	stats, err := s.userBadgeRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to retrieve badge stats")
	}

	pinned, err := s.GetPinnedBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.Pinned = pinned
	return stats, nil
}

// ListBadges retrieves the badge catalogue, cached per category and page.
func (s *badgeService) ListBadges(ctx context.Context, category string, params models.PaginationParams) (*models.PaginatedResponse[*models.Badge], error) {
	cacheKey := fmt.Sprintf("badges:catalogue:%s:%d:%d", category, params.Limit, params.Offset)
	if cached, found := s.cache.Get(ctx, cacheKey); found {
		if page, ok := decodeCached[*models.PaginatedResponse[*models.Badge]](cached); ok {
			return page, nil
		}
	}

	page, err := s.badgeRepo.List(ctx, category, params)
	if err != nil {
		return nil, NewInternalError("failed to list badges")
	}

	if err := s.cache.Set(ctx, cacheKey, page, 15*time.Minute); err != nil {
		s.logger.Warn("Failed to cache badge catalogue", zap.Error(err))
	}
	return page, nil
}

// RemoveAward deletes an award. Administrative paths only; sweeps never
// remove anything.
func (s *badgeService) RemoveAward(ctx context.Context, userID, badgeID int64) error {
	if err := s.userBadgeRepo.Delete(ctx, userID, badgeID); err != nil {
		if errors.Is(err, repositories.ErrAwardNotFound) {
			return NewNotFoundError("award not found")
		}
		return NewInternalError("failed to remove award")
	}

	s.invalidateBadgeCaches(ctx, userID)
	return nil
}

// ===============================
// HELPERS
// ===============================

// decodeCached converts a cache hit into the caller's concrete type. The
// memory provider hands back the stored value; the Redis provider hands back
// raw JSON. Anything else is treated as a miss.
func decodeCached[T any](cached interface{}) (T, bool) {
	if typed, ok := cached.(T); ok {
		return typed, true
	}
	if raw, ok := cached.([]byte); ok {
		var typed T
		if err := json.Unmarshal(raw, &typed); err == nil {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func (s *badgeService) invalidateBadgeCaches(ctx context.Context, userID int64) {
	key := fmt.Sprintf("badges:pinned:%d", userID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Debug("Failed to invalidate badge cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (s *badgeService) logSweep(msg string, result SweepResult) {
	s.logger.Info(msg,
		zap.Int64("user_id", result.UserID),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("awarded", result.Awarded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
}
