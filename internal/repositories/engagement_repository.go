// file: internal/repositories/engagement_repository.go
package repositories

import (
	"alphahub/internal/database"
	"alphahub/internal/models"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// engagementRepository implements EngagementRepository. The unique constraint
// on (user_id, post_id) is the storage-level guarantee that one user records
// at most one engagement per post.
type engagementRepository struct {
	*BaseRepository
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(db *database.Manager, logger *zap.Logger) EngagementRepository {
	return &engagementRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create persists an engagement with its breakdown and profile snapshot.
func (r *engagementRepository) Create(ctx context.Context, engagement *models.Engagement) error {
	query := `
		INSERT INTO engagements (
			user_id, post_id, kinds, breakdown, total_points,
			status, follower_count_at, account_age_days_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		engagement.UserID, engagement.PostID,
		engagement.Kinds, engagement.Breakdown, engagement.TotalPoints,
		engagement.Status, engagement.FollowerCountAt, engagement.AccountAgeDaysAt,
	).Scan(&engagement.ID, &engagement.CreatedAt)
	if err != nil {
		if r.IsUniqueViolation(err, "engagements_user_id_post_id_key") {
			return ErrDuplicateEngagement
		}
		return fmt.Errorf("failed to create engagement: %w", err)
	}

	r.GetLogger().Info("Engagement recorded",
		zap.Int64("user_id", engagement.UserID),
		zap.Int64("post_id", engagement.PostID),
		zap.Int("total_points", engagement.TotalPoints),
	)
	return nil
}

const engagementColumns = `
	e.id, e.user_id, e.post_id, e.kinds, e.breakdown, e.total_points,
	e.status, e.follower_count_at, e.account_age_days_at, e.created_at`

// GetByUserAndPost retrieves the engagement for a (user, post) pair, or nil.
func (r *engagementRepository) GetByUserAndPost(ctx context.Context, userID, postID int64) (*models.Engagement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM engagements e
		WHERE e.user_id = $1 AND e.post_id = $2`, engagementColumns)

	var engagement models.Engagement
	err := r.QueryRowContext(ctx, query, userID, postID).Scan(
		&engagement.ID, &engagement.UserID, &engagement.PostID,
		&engagement.Kinds, &engagement.Breakdown, &engagement.TotalPoints,
		&engagement.Status, &engagement.FollowerCountAt,
		&engagement.AccountAgeDaysAt, &engagement.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get engagement: %w", err)
	}

	return &engagement, nil
}

// ListByUser retrieves a user's engagements, newest first.
func (r *engagementRepository) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Engagement], error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	total, err := r.GetTotalCount(ctx,
		`SELECT COUNT(*) FROM engagements e WHERE e.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count engagements: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM engagements e
		WHERE e.user_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3`, engagementColumns)

	rows, err := r.QueryContext(ctx, query, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}
	defer rows.Close()

	var engagements []*models.Engagement
	for rows.Next() {
		var engagement models.Engagement
		err := rows.Scan(
			&engagement.ID, &engagement.UserID, &engagement.PostID,
			&engagement.Kinds, &engagement.Breakdown, &engagement.TotalPoints,
			&engagement.Status, &engagement.FollowerCountAt,
			&engagement.AccountAgeDaysAt, &engagement.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan engagement: %w", err)
		}
		engagements = append(engagements, &engagement)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Engagement]{
		Data:       engagements,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// ===============================
// MEASUREMENTS
// ===============================

// CountByUser returns the user's lifetime engagement count.
func (r *engagementRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM engagements WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count engagements: %w", err)
	}
	return count, nil
}

// VerifiedCounts returns the user's verified and total engagement counts,
// the inputs to the quality-ratio bonus.
func (r *engagementRepository) VerifiedCounts(ctx context.Context, userID int64) (int64, int64, error) {
	var verified, total int64
	err := r.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('verified', 'auto_verified')),
			COUNT(*)
		FROM engagements
		WHERE user_id = $1`, userID).Scan(&verified, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count verified engagements: %w", err)
	}
	return verified, total, nil
}

// CountForRuleSince counts engagements since the cutoff whose breakdown
// includes the given rule. Backs the per-rule daily limit gate.
func (r *engagementRepository) CountForRuleSince(ctx context.Context, userID, ruleID int64, since time.Time) (int64, error) {
	var count int64
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM engagements e
		WHERE e.user_id = $1
		  AND e.created_at >= $2
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(e.breakdown) entry
			WHERE (entry->>'rule_id')::bigint = $3
		  )`, userID, since, ruleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count engagements for rule: %w", err)
	}
	return count, nil
}

// LastForRuleAt returns when the user last triggered the given rule, or nil.
// Backs the cooldown gate.
func (r *engagementRepository) LastForRuleAt(ctx context.Context, userID, ruleID int64) (*time.Time, error) {
	var last time.Time
	err := r.QueryRowContext(ctx, `
		SELECT e.created_at
		FROM engagements e
		WHERE e.user_id = $1
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(e.breakdown) entry
			WHERE (entry->>'rule_id')::bigint = $2
		  )
		ORDER BY e.created_at DESC
		LIMIT 1`, userID, ruleID).Scan(&last)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last engagement for rule: %w", err)
	}
	return &last, nil
}
