// file: internal/repositories/activity_repository.go
package repositories

import (
	"alphahub/internal/database"
	"alphahub/internal/models"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// activityRepository implements ActivityRepository: read-only aggregate
// queries over the activity tables the rest of the platform owns. It never
// writes; the criteria evaluator is a pure read on top of it.
type activityRepository struct {
	*BaseRepository
}

// NewActivityRepository creates a new activity aggregator.
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityRepository {
	return &activityRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// ===============================
// CONTENT MEASUREMENTS
// ===============================

// ContentCount counts the user's published items, optionally filtered by
// module, content subtype, and a trailing window in days.
func (r *activityRepository) ContentCount(ctx context.Context, userID int64, module, contentType string, windowDays int) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM posts p
		WHERE p.author_id = $1 AND p.status = 'published'`
	args := []interface{}{userID}

	query, args = appendContentFilters(query, args, module, contentType, windowDays)

	var count int64
	if err := r.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}

// MaxPostLikes returns the like count of the user's single most-liked item.
// Single-instance criteria ("one post with 100 likes") resolve through this,
// never through the sum.
func (r *activityRepository) MaxPostLikes(ctx context.Context, userID int64, module string, windowDays int) (int64, error) {
	return r.postAggregate(ctx, "COALESCE(MAX(p.likes_count), 0)", userID, module, windowDays)
}

// SumPostLikes returns the user's cumulative like count across items.
func (r *activityRepository) SumPostLikes(ctx context.Context, userID int64, module string, windowDays int) (int64, error) {
	return r.postAggregate(ctx, "COALESCE(SUM(p.likes_count), 0)", userID, module, windowDays)
}

// MaxPostComments returns the comment count of the single most-discussed item.
func (r *activityRepository) MaxPostComments(ctx context.Context, userID int64, module string, windowDays int) (int64, error) {
	return r.postAggregate(ctx, "COALESCE(MAX(p.comments_count), 0)", userID, module, windowDays)
}

// SumPostComments returns the cumulative comment count across the user's items.
func (r *activityRepository) SumPostComments(ctx context.Context, userID int64, module string, windowDays int) (int64, error) {
	return r.postAggregate(ctx, "COALESCE(SUM(p.comments_count), 0)", userID, module, windowDays)
}

func (r *activityRepository) postAggregate(ctx context.Context, aggregate string, userID int64, module string, windowDays int) (int64, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		WHERE p.author_id = $1 AND p.status = 'published'`, aggregate)
	args := []interface{}{userID}

	query, args = appendContentFilters(query, args, module, "", windowDays)

	var value int64
	if err := r.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to aggregate post activity: %w", err)
	}
	return value, nil
}

func appendContentFilters(query string, args []interface{}, module, contentType string, windowDays int) (string, []interface{}) {
	if module != "" {
		args = append(args, module)
		query += fmt.Sprintf(" AND p.module = $%d", len(args))
	}
	if contentType != "" {
		args = append(args, contentType)
		query += fmt.Sprintf(" AND p.content_type = $%d", len(args))
	}
	if windowDays > 0 {
		args = append(args, windowDays)
		query += fmt.Sprintf(" AND p.created_at >= CURRENT_TIMESTAMP - make_interval(days => $%d)", len(args))
	}
	return query, args
}

// ===============================
// COURSE MEASUREMENTS
// ===============================

// CourseCompletions counts courses the user has completed.
func (r *activityRepository) CourseCompletions(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM course_completions cc
		WHERE cc.user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count course completions: %w", err)
	}
	return count, nil
}

// RatingCount counts ratings received on the user's courses.
func (r *activityRepository) RatingCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM course_ratings cr
		JOIN courses c ON c.id = cr.course_id
		WHERE c.mentor_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}

// AverageRating recomputes the mean rating across the user's courses by
// re-reading every rating row. Concurrent rating writes can land between the
// read and any use of the result; this is best-effort, not serialized.
func (r *activityRepository) AverageRating(ctx context.Context, userID int64) (float64, error) {
	var avg float64
	err := r.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(cr.rating), 0)
		FROM course_ratings cr
		JOIN courses c ON c.id = cr.course_id
		WHERE c.mentor_id = $1`, userID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to compute average rating: %w", err)
	}
	return avg, nil
}

// ===============================
// LOOKUPS
// ===============================

// GetPostRef resolves a post to its engagement-relevant fields, or nil when
// the post does not exist.
func (r *activityRepository) GetPostRef(ctx context.Context, postID int64) (*models.PostRef, error) {
	var ref models.PostRef
	err := r.QueryRowContext(ctx, `
		SELECT p.id, p.author_id, p.module, p.created_at
		FROM posts p
		WHERE p.id = $1 AND p.status = 'published'`, postID).Scan(
		&ref.ID, &ref.AuthorID, &ref.Module, &ref.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &ref, nil
}

// RecentlyActiveUserIDs returns users with published activity since the
// cutoff, for the periodic sweep worker.
func (r *activityRepository) RecentlyActiveUserIDs(ctx context.Context, since time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.QueryContext(ctx, `
		SELECT DISTINCT p.author_id
		FROM posts p
		WHERE p.created_at >= $1 AND p.status = 'published'
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
