// file: internal/repositories/user_repository.go
package repositories

import (
	"alphahub/internal/database"
	"alphahub/internal/models"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// userRepository implements the engine's narrow user view. User lifecycle is
// owned by the application layer; the engine only reads profiles and bumps
// the stat counters that awards and engagements feed.
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetByID retrieves a user with their stat rollups, or nil when missing.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT
			u.id, u.username, u.display_name, u.role,
			u.is_verified, u.is_active, u.follower_count, u.created_at,
			COALESCE(us.reputation_points, 0) AS reputation_points,
			COALESCE(us.total_contributions, 0) AS total_contributions,
			(SELECT COUNT(*) FROM user_badges ub WHERE ub.user_id = u.id) AS badge_count
		FROM users u
		LEFT JOIN user_stats us ON u.id = us.user_id
		WHERE u.id = $1 AND u.is_active = true`

	var user models.User
	err := r.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.DisplayName, &user.Role,
		&user.IsVerified, &user.IsActive, &user.FollowerCount, &user.CreatedAt,
		&user.ReputationPoints, &user.TotalContributions, &user.BadgeCount,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// IncrementReputation atomically adds delta to the user's reputation. The
// upsert makes the increment race-free: two concurrent awards both land.
func (r *userRepository) IncrementReputation(ctx context.Context, userID int64, delta int) error {
	if delta == 0 {
		return nil
	}

	query := `
		INSERT INTO user_stats (user_id, reputation_points)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET reputation_points = user_stats.reputation_points + $2`

	if _, err := r.ExecContext(ctx, query, userID, delta); err != nil {
		return fmt.Errorf("failed to increment reputation: %w", err)
	}

	r.GetLogger().Debug("Reputation incremented",
		zap.Int64("user_id", userID),
		zap.Int("delta", delta),
	)
	return nil
}

// IncrementContributions atomically adds delta to the contribution total.
func (r *userRepository) IncrementContributions(ctx context.Context, userID int64, delta int) error {
	if delta == 0 {
		return nil
	}

	query := `
		INSERT INTO user_stats (user_id, total_contributions)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET total_contributions = user_stats.total_contributions + $2`

	if _, err := r.ExecContext(ctx, query, userID, delta); err != nil {
		return fmt.Errorf("failed to increment contributions: %w", err)
	}
	return nil
}
