// file: internal/services/points_service.go
package services

import (
	"alphahub/internal/events"
	"alphahub/internal/models"
	"alphahub/internal/repositories"
	"alphahub/internal/validation"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// pointsService implements PointsService: additive rule matching, bonus and
// multiplier resolution, pre-commit gates, and the commit path.
type pointsService struct {
	ruleRepo       repositories.ScoringRuleRepository
	engagementRepo repositories.EngagementRepository
	activityRepo   repositories.ActivityRepository
	userRepo       repositories.UserRepository
	events         events.EventBus
	logger         *zap.Logger

	// now is injectable so weekend multipliers and active-hours windows are
	// testable.
	now func() time.Time
}

// NewPointsService creates a new points service.
func NewPointsService(
	ruleRepo repositories.ScoringRuleRepository,
	engagementRepo repositories.EngagementRepository,
	activityRepo repositories.ActivityRepository,
	userRepo repositories.UserRepository,
	events events.EventBus,
	logger *zap.Logger,
) PointsService {
	return &pointsService{
		ruleRepo:       ruleRepo,
		engagementRepo: engagementRepo,
		activityRepo:   activityRepo,
		userRepo:       userRepo,
		events:         events,
		logger:         logger,
		now:            time.Now,
	}
}

// ===============================
// SCORING
// ===============================

// CalculatePoints scores the claimed engagement kinds against every active
// matching rule. Rules are additive; a rule whose requirements the actor does
// not meet is skipped silently rather than failing the calculation.
func (s *pointsService) CalculatePoints(ctx context.Context, req *CalculatePointsRequest) (*PointsResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid points calculation request", err)
	}

	actor, err := s.userRepo.GetByID(ctx, req.ActorID)
	if err != nil {
		return nil, NewInternalError("failed to load acting user")
	}
	if actor == nil {
		return nil, NewNotFoundError("user not found")
	}

	post, err := s.activityRepo.GetPostRef(ctx, req.PostID)
	if err != nil {
		return nil, NewInternalError("failed to load target post")
	}
	if post == nil {
		return nil, NewNotFoundError("post not found")
	}
	if post.AuthorID == req.ActorID {
		return nil, NewSelfEngagementError()
	}

	rules, err := s.ruleRepo.GetActiveByKinds(ctx, req.Kinds)
	if err != nil {
		return nil, NewInternalError("failed to load scoring rules")
	}

	now := s.now()
	result := &PointsResult{
		ActorID:          req.ActorID,
		PostID:           req.PostID,
		Kinds:            req.Kinds,
		Breakdown:        models.PointsBreakdown{},
		FollowerCountAt:  actor.FollowerCount,
		AccountAgeDaysAt: actor.AccountAgeDays(now),
	}

	for _, rule := range rules {
		if !s.meetsRequirements(actor, rule, now) {
			continue
		}
		if !rule.WithinValidity(now) || !rule.WithinActiveHours(now) {
			continue
		}

		entry, err := s.scoreRule(ctx, actor, rule, now)
		if err != nil {
			// A failing measurement on one rule must not sink the rest.
			s.logger.Warn("Rule scoring failed, skipping rule",
				zap.Int64("user_id", actor.ID),
				zap.Int64("rule_id", rule.ID),
				zap.Error(err),
			)
			continue
		}

		result.Breakdown = append(result.Breakdown, entry)
		result.Total += entry.Total
	}

	return result, nil
}

// meetsRequirements checks a rule's profile gates against the acting user.
func (s *pointsService) meetsRequirements(actor *models.User, rule *models.EngagementCriteria, now time.Time) bool {
	req := rule.Requirements
	if req.MinFollowers > 0 && actor.FollowerCount < req.MinFollowers {
		return false
	}
	if req.MinAccountAgeDays > 0 && actor.AccountAgeDays(now) < req.MinAccountAgeDays {
		return false
	}
	if req.RequireVerified && !actor.IsVerified {
		return false
	}
	return true
}

// scoreRule computes one rule's contribution: base, bonuses, then the
// compound multiplier over (base + bonus), rounded to the nearest point.
func (s *pointsService) scoreRule(ctx context.Context, actor *models.User, rule *models.EngagementCriteria, now time.Time) (models.PointsBreakdownEntry, error) {
	entry := models.PointsBreakdownEntry{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Kind:       rule.Kind,
		BasePoints: rule.BasePoints,
		Multiplier: 1.0,
	}

	reasons := []string{fmt.Sprintf("base %d for %s", rule.BasePoints, rule.Kind)}

	for _, bonus := range rule.Bonuses {
		value, err := s.bonusValue(ctx, actor, bonus.ConditionType)
		if err != nil {
			return entry, err
		}
		if value >= bonus.Threshold {
			entry.BonusPoints += bonus.BonusPoints
			reasons = append(reasons, fmt.Sprintf("+%d %s bonus (%.0f >= %.0f)",
				bonus.BonusPoints, bonus.ConditionType, value, bonus.Threshold))
		}
	}

	for _, mult := range rule.Multipliers {
		if !s.multiplierApplies(&mult, now) {
			continue
		}
		entry.Multiplier *= mult.Factor
		reasons = append(reasons, fmt.Sprintf("x%.2f %s multiplier", mult.Factor, mult.Condition))
	}

	entry.Total = int(math.Round(float64(entry.BasePoints+entry.BonusPoints) * entry.Multiplier))
	entry.Reason = strings.Join(reasons, "; ")
	return entry, nil
}

// bonusValue measures the acting user's current value for one bonus
// condition. Unknown condition types measure as zero and never fire.
func (s *pointsService) bonusValue(ctx context.Context, actor *models.User, conditionType string) (float64, error) {
	switch conditionType {
	case models.BonusEngagementCount:
		count, err := s.engagementRepo.CountByUser(ctx, actor.ID)
		if err != nil {
			return 0, err
		}
		return float64(count), nil

	case models.BonusQualityRatio:
		verified, total, err := s.engagementRepo.VerifiedCounts(ctx, actor.ID)
		if err != nil {
			return 0, err
		}
		if total == 0 {
			return 0, nil
		}
		return float64(verified) / float64(total) * 100, nil

	case models.BonusFollowerCount:
		return float64(actor.FollowerCount), nil

	default:
		s.logger.Warn("Unknown bonus condition type",
			zap.String("condition_type", conditionType),
		)
		return 0, nil
	}
}

// multiplierApplies resolves one multiplier condition at now, inside that
// multiplier's own validity window. Unknown conditions never apply.
func (s *pointsService) multiplierApplies(mult *models.Multiplier, now time.Time) bool {
	if !mult.ActiveWithin(now) {
		return false
	}
	switch mult.Condition {
	case models.MultiplierWeekend:
		wd := now.Weekday()
		return wd == time.Saturday || wd == time.Sunday
	case models.MultiplierCampaign:
		// Campaigns are pure time windows, already checked above.
		return true
	default:
		s.logger.Warn("Unknown multiplier condition",
			zap.String("condition", mult.Condition),
		)
		return false
	}
}

// ===============================
// GATES
// ===============================

// CheckDailyLimit reports whether the user may still earn from the rule
// today. The day boundary is local midnight of the engine clock.
func (s *pointsService) CheckDailyLimit(ctx context.Context, userID, ruleID int64) (bool, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return false, NewInternalError("failed to load scoring rule")
	}
	if rule == nil {
		return false, NewNotFoundError("scoring rule not found")
	}
	if rule.Requirements.MaxPerDay <= 0 {
		return true, nil
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.engagementRepo.CountForRuleSince(ctx, userID, ruleID, midnight)
	if err != nil {
		return false, NewInternalError("failed to count today's engagements")
	}
	return count < int64(rule.Requirements.MaxPerDay), nil
}

// CheckCooldown reports whether the rule's per-user cooldown has elapsed
// since the user last earned from it.
func (s *pointsService) CheckCooldown(ctx context.Context, userID, ruleID int64) (bool, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return false, NewInternalError("failed to load scoring rule")
	}
	if rule == nil {
		return false, NewNotFoundError("scoring rule not found")
	}
	if rule.Requirements.CooldownMinutes <= 0 {
		return true, nil
	}

	last, err := s.engagementRepo.LastForRuleAt(ctx, userID, ruleID)
	if err != nil {
		return false, NewInternalError("failed to load last engagement time")
	}
	if last == nil {
		return true, nil
	}

	cooldown := time.Duration(rule.Requirements.CooldownMinutes) * time.Minute
	return s.now().Sub(*last) >= cooldown, nil
}

// ===============================
// COMMIT PATH
// ===============================

// RecordEngagement recalculates, enforces the daily-limit and cooldown gates
// for every matched rule, persists the engagement, and credits the content
// author. Duplicates resolve at the storage layer so two racing commits
// cannot double-credit.
func (s *pointsService) RecordEngagement(ctx context.Context, req *RecordEngagementRequest) (*models.Engagement, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid engagement request", err)
	}

	result, err := s.CalculatePoints(ctx, &CalculatePointsRequest{
		ActorID: req.ActorID,
		PostID:  req.PostID,
		Kinds:   req.Kinds,
	})
	if err != nil {
		return nil, err
	}

	for _, entry := range result.Breakdown {
		allowed, err := s.CheckDailyLimit(ctx, req.ActorID, entry.RuleID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, NewBusinessError(
				fmt.Sprintf("daily limit reached for rule %q", entry.RuleName),
				CodeDailyLimitReached)
		}

		allowed, err = s.CheckCooldown(ctx, req.ActorID, entry.RuleID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, NewBusinessError(
				fmt.Sprintf("cooldown active for rule %q", entry.RuleName),
				CodeCooldownActive)
		}
	}

	actor, err := s.userRepo.GetByID(ctx, req.ActorID)
	if err != nil || actor == nil {
		return nil, NewInternalError("failed to load acting user")
	}

	post, err := s.activityRepo.GetPostRef(ctx, req.PostID)
	if err != nil || post == nil {
		return nil, NewInternalError("failed to load target post")
	}

	status := models.EngagementStatusPending
	if actor.IsVerified {
		status = models.EngagementStatusAutoVerified
	}

	engagement := &models.Engagement{
		UserID:           req.ActorID,
		PostID:           req.PostID,
		Kinds:            models.KindList(req.Kinds),
		Breakdown:        result.Breakdown,
		TotalPoints:      result.Total,
		Status:           status,
		FollowerCountAt:  result.FollowerCountAt,
		AccountAgeDaysAt: result.AccountAgeDaysAt,
	}

	if err := s.engagementRepo.Create(ctx, engagement); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEngagement) {
			return nil, NewDuplicateEngagementError()
		}
		s.logger.Error("Failed to persist engagement",
			zap.Int64("user_id", req.ActorID),
			zap.Int64("post_id", req.PostID),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to record engagement")
	}

	// The author earns the points; the actor earns a contribution tick.
	if result.Total > 0 {
		if err := s.userRepo.IncrementReputation(ctx, post.AuthorID, result.Total); err != nil {
			s.logger.Error("Failed to credit engagement points",
				zap.Int64("author_id", post.AuthorID),
				zap.Int64("engagement_id", engagement.ID),
				zap.Error(err),
			)
		}
	}
	if err := s.userRepo.IncrementContributions(ctx, req.ActorID, 1); err != nil {
		s.logger.Warn("Failed to credit contribution",
			zap.Int64("user_id", req.ActorID),
			zap.Error(err),
		)
	}

	if err := s.events.PublishAsync(ctx, events.NewEngagementRecordedEvent(
		req.ActorID, req.PostID, post.AuthorID, req.Kinds, result.Total,
	)); err != nil {
		s.logger.Warn("Failed to publish engagement recorded event", zap.Error(err))
	}

	s.logger.Info("Engagement recorded",
		zap.Int64("user_id", req.ActorID),
		zap.Int64("post_id", req.PostID),
		zap.Int("total_points", result.Total),
		zap.Int("rules_matched", len(result.Breakdown)),
	)

	return engagement, nil
}

// ===============================
// READS
// ===============================

// GetEngagement retrieves the engagement one user made toward one post.
func (s *pointsService) GetEngagement(ctx context.Context, userID, postID int64) (*models.Engagement, error) {
	engagement, err := s.engagementRepo.GetByUserAndPost(ctx, userID, postID)
	if err != nil {
		return nil, NewInternalError("failed to retrieve engagement")
	}
	if engagement == nil {
		return nil, NewNotFoundError("engagement not found")
	}
	return engagement, nil
}

// ListEngagements retrieves a user's engagement history, newest first.
func (s *pointsService) ListEngagements(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Engagement], error) {
	page, err := s.engagementRepo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, NewInternalError("failed to list engagements")
	}
	return page, nil
}
