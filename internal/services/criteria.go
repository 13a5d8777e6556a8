// file: internal/services/criteria.go
package services

import (
	"alphahub/internal/models"
	"alphahub/internal/repositories"
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// criteriaEvaluator resolves badge criteria against live aggregate activity.
// It is a pure read: no evaluation ever writes.
type criteriaEvaluator struct {
	activityRepo repositories.ActivityRepository
	userRepo     repositories.UserRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewCriteriaEvaluator creates a new criteria evaluator.
func NewCriteriaEvaluator(
	activityRepo repositories.ActivityRepository,
	userRepo repositories.UserRepository,
	logger *zap.Logger,
) CriteriaEvaluator {
	return &criteriaEvaluator{
		activityRepo: activityRepo,
		userRepo:     userRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Evaluate resolves the criterion's measurement and compares it against the
// target. Unknown criterion types evaluate to false rather than erroring so a
// misconfigured rule never takes down a sweep.
func (e *criteriaEvaluator) Evaluate(ctx context.Context, userID int64, criteria *models.Criteria) (bool, error) {
	if criteria == nil {
		return false, nil
	}

	value, known, err := e.resolve(ctx, userID, criteria)
	if err != nil {
		return false, err
	}
	if !known {
		e.logger.Warn("Unknown criterion type, treating rule as non-matching",
			zap.String("criterion_type", string(criteria.Type)),
			zap.Int64("user_id", userID),
		)
		return false, nil
	}

	matched := criteria.Compare(value)

	e.logger.Debug("Criterion evaluated",
		zap.Int64("user_id", userID),
		zap.String("criterion_type", string(criteria.Type)),
		zap.Int64("value", value),
		zap.Int64("target", criteria.Target),
		zap.String("operator", criteria.EffectiveOperator()),
		zap.Bool("matched", matched),
	)
	return matched, nil
}

// resolve turns a criterion into a scalar measurement. The second return
// value reports whether the criterion type is part of the closed catalogue.
func (e *criteriaEvaluator) resolve(ctx context.Context, userID int64, criteria *models.Criteria) (int64, bool, error) {
	switch criteria.Type {
	case models.CriterionContentCount:
		value, err := e.activityRepo.ContentCount(ctx, userID, criteria.Module, criteria.ContentType, criteria.WindowDays)
		return value, true, err

	case models.CriterionLikeCount:
		// Single-instance asks whether any one item meets the target on its
		// own, so the measurement is the max over items, never the sum.
		if criteria.SingleInstance {
			value, err := e.activityRepo.MaxPostLikes(ctx, userID, criteria.Module, criteria.WindowDays)
			return value, true, err
		}
		value, err := e.activityRepo.SumPostLikes(ctx, userID, criteria.Module, criteria.WindowDays)
		return value, true, err

	case models.CriterionCommentCount:
		if criteria.SingleInstance {
			value, err := e.activityRepo.MaxPostComments(ctx, userID, criteria.Module, criteria.WindowDays)
			return value, true, err
		}
		value, err := e.activityRepo.SumPostComments(ctx, userID, criteria.Module, criteria.WindowDays)
		return value, true, err

	case models.CriterionCourseCompletions:
		value, err := e.activityRepo.CourseCompletions(ctx, userID)
		return value, true, err

	case models.CriterionRatingCount:
		value, err := e.activityRepo.RatingCount(ctx, userID)
		return value, true, err

	case models.CriterionAverageRating:
		// Targets are whole stars, so the mean is truncated: a target of 4
		// only matches a true mean of at least 4.0.
		avg, err := e.activityRepo.AverageRating(ctx, userID)
		return int64(math.Floor(avg)), true, err

	case models.CriterionReputationPoints:
		user, err := e.loadUser(ctx, userID)
		if err != nil || user == nil {
			return 0, true, err
		}
		return int64(user.ReputationPoints), true, nil

	case models.CriterionContributionTotal:
		user, err := e.loadUser(ctx, userID)
		if err != nil || user == nil {
			return 0, true, err
		}
		return int64(user.TotalContributions), true, nil

	case models.CriterionAccountAgeDays:
		user, err := e.loadUser(ctx, userID)
		if err != nil || user == nil {
			return 0, true, err
		}
		return int64(user.AccountAgeDays(e.now())), true, nil

	case models.CriterionRoleLinked:
		user, err := e.loadUser(ctx, userID)
		if err != nil || user == nil {
			return 0, true, err
		}
		if criteria.Role != "" && user.Role == criteria.Role {
			return 1, true, nil
		}
		return 0, true, nil

	case models.CriterionEarlyAdopter:
		// Signup order is the user's position: identifiers are assigned
		// sequentially, so the ID itself is the deterministic rank.
		return userID, true, nil
	}

	return 0, false, nil
}

func (e *criteriaEvaluator) loadUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := e.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}
