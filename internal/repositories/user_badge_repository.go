// file: internal/repositories/user_badge_repository.go
package repositories

import (
	"alphahub/internal/database"
	"alphahub/internal/models"
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// userBadgeRepository implements UserBadgeRepository. All pin-state writes go
// through a per-user serialized transaction; the partial unique index on
// (user_id, pin_order) is the backstop for anything that slips past it.
type userBadgeRepository struct {
	*BaseRepository
}

// NewUserBadgeRepository creates a new award repository.
func NewUserBadgeRepository(db *database.Manager, logger *zap.Logger) UserBadgeRepository {
	return &userBadgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// ===============================
// AWARDS
// ===============================

// Insert attempts to create an award row. A unique violation on
// (user_id, badge_id) means another sweep got there first; that is success
// from the caller's point of view, so it comes back as (false, nil).
func (r *userBadgeRepository) Insert(ctx context.Context, award *models.UserBadge) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id, earned_from, is_visible)
		VALUES ($1, $2, $3, true)
		RETURNING id, earned_at, is_visible, is_pinned`

	err := r.QueryRowContext(ctx, query, award.UserID, award.BadgeID, award.EarnedFrom).Scan(
		&award.ID, &award.EarnedAt, &award.IsVisible, &award.IsPinned,
	)
	if err != nil {
		if r.IsUniqueViolation(err, "user_badges_user_id_badge_id_key") {
			r.GetLogger().Debug("Badge already awarded",
				zap.Int64("user_id", award.UserID),
				zap.Int64("badge_id", award.BadgeID),
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to insert award: %w", err)
	}

	return true, nil
}

const userBadgeColumns = `
	ub.id, ub.user_id, ub.badge_id, ub.earned_at, ub.earned_from,
	ub.is_visible, ub.is_pinned, ub.pin_order, ub.pinned_at`

// GetByUser retrieves a user's awards, newest first, joined with their badge
// definitions.
func (r *userBadgeRepository) GetByUser(ctx context.Context, userID int64, visibleOnly bool) ([]*models.UserBadge, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1`, userBadgeColumns, badgeColumns)
	if visibleOnly {
		query += " AND ub.is_visible = true"
	}
	query += " ORDER BY ub.earned_at DESC"

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user badges: %w", err)
	}
	defer rows.Close()

	return r.collectAwards(rows)
}

// GetHeldBadgeIDs returns the set of badge IDs the user already holds, so
// sweeps can skip them without re-evaluating criteria.
func (r *userBadgeRepository) GetHeldBadgeIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.QueryContext(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get held badge IDs: %w", err)
	}
	defer rows.Close()

	held := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan badge ID: %w", err)
		}
		held[id] = true
	}
	return held, rows.Err()
}

// GetPinned retrieves the user's pinned awards ordered by slot. The pin cap
// makes the result at most three rows.
func (r *userBadgeRepository) GetPinned(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1 AND ub.is_pinned = true
		ORDER BY ub.pin_order
		LIMIT %d`, userBadgeColumns, badgeColumns, models.MaxPinnedBadges)

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pinned badges: %w", err)
	}
	defer rows.Close()

	return r.collectAwards(rows)
}

// ===============================
// PIN STATE MACHINE
// ===============================

// Pin assigns the lowest free slot in {1..3}. Reading the user's pinned rows
// FOR UPDATE serializes concurrent pins for the same user; the partial unique
// index on (user_id, pin_order) catches anything that still races, which
// surfaces as ErrPinSlotConflict so the service can retry.
func (r *userBadgeRepository) Pin(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	var pinned *models.UserBadge

	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		var awardID int64
		var isPinned bool
		err := tx.QueryRowContext(ctx, `
			SELECT id, is_pinned FROM user_badges
			WHERE user_id = $1 AND badge_id = $2
			FOR UPDATE`, userID, badgeID).Scan(&awardID, &isPinned)
		if err != nil {
			if r.IsNotFound(err) {
				return ErrAwardNotFound
			}
			return fmt.Errorf("failed to load award for pin: %w", err)
		}
		if isPinned {
			return ErrAlreadyPinned
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT pin_order FROM user_badges
			WHERE user_id = $1 AND is_pinned = true
			FOR UPDATE`, userID)
		if err != nil {
			return fmt.Errorf("failed to load pinned slots: %w", err)
		}
		taken := make(map[int]bool, models.MaxPinnedBadges)
		count := 0
		for rows.Next() {
			var slot sql.NullInt64
			if err := rows.Scan(&slot); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan pin slot: %w", err)
			}
			if slot.Valid {
				taken[int(slot.Int64)] = true
			}
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if count >= models.MaxPinnedBadges {
			return ErrPinLimitExceeded
		}

		slot := lowestFreeSlot(taken)
		if slot == 0 {
			return ErrPinLimitExceeded
		}

		var award models.UserBadge
		err = tx.QueryRowContext(ctx, `
			UPDATE user_badges
			SET is_pinned = true, pin_order = $2, pinned_at = CURRENT_TIMESTAMP
			WHERE id = $1
			RETURNING `+awardReturning, awardID, slot).Scan(awardScanArgs(&award)...)
		if err != nil {
			if r.IsUniqueViolation(err, "user_badges_pin_slot_idx") {
				return ErrPinSlotConflict
			}
			return fmt.Errorf("failed to pin badge: %w", err)
		}

		pinned = &award
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.GetLogger().Info("Badge pinned",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
		zap.Intp("slot", pinned.PinOrder),
	)
	return pinned, nil
}

// Unpin clears the slot and pin timestamp.
func (r *userBadgeRepository) Unpin(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	var award models.UserBadge
	err := r.QueryRowContext(ctx, `
		UPDATE user_badges
		SET is_pinned = false, pin_order = NULL, pinned_at = NULL
		WHERE user_id = $1 AND badge_id = $2 AND is_pinned = true
		RETURNING `+awardReturning, userID, badgeID).Scan(awardScanArgs(&award)...)
	if err != nil {
		if r.IsNotFound(err) {
			// Distinguish "no such award" from "award exists but unpinned".
			var exists bool
			checkErr := r.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`,
				userID, badgeID).Scan(&exists)
			if checkErr != nil {
				return nil, fmt.Errorf("failed to check award existence: %w", checkErr)
			}
			if !exists {
				return nil, ErrAwardNotFound
			}
			return nil, ErrNotPinned
		}
		return nil, fmt.Errorf("failed to unpin badge: %w", err)
	}

	return &award, nil
}

// ToggleVisibility flips the visibility flag. Pin state is untouched: a
// pinned-but-hidden badge is a valid state.
func (r *userBadgeRepository) ToggleVisibility(ctx context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	var award models.UserBadge
	err := r.QueryRowContext(ctx, `
		UPDATE user_badges
		SET is_visible = NOT is_visible
		WHERE user_id = $1 AND badge_id = $2
		RETURNING `+awardReturning, userID, badgeID).Scan(awardScanArgs(&award)...)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrAwardNotFound
		}
		return nil, fmt.Errorf("failed to toggle badge visibility: %w", err)
	}

	return &award, nil
}

// ===============================
// STATS
// ===============================

// GetStats aggregates a user's visible awards by rarity and category.
func (r *userBadgeRepository) GetStats(ctx context.Context, userID int64) (*models.BadgeStats, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT b.rarity, b.category, COUNT(*)
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1 AND ub.is_visible = true
		GROUP BY b.rarity, b.category`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge stats: %w", err)
	}
	defer rows.Close()

	stats := &models.BadgeStats{
		UserID:     userID,
		ByRarity:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for rows.Next() {
		var rarity, category string
		var count int
		if err := rows.Scan(&rarity, &category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan badge stats: %w", err)
		}
		stats.ByRarity[rarity] += count
		stats.ByCategory[category] += count
		stats.Total += count
	}
	return stats, rows.Err()
}

// Delete removes an award. Administrative paths only.
func (r *userBadgeRepository) Delete(ctx context.Context, userID, badgeID int64) error {
	result, err := r.ExecContext(ctx,
		`DELETE FROM user_badges WHERE user_id = $1 AND badge_id = $2`, userID, badgeID)
	if err != nil {
		return fmt.Errorf("failed to delete award: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrAwardNotFound
	}

	r.GetLogger().Info("Award removed",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badgeID),
	)
	return nil
}

// ===============================
// SCANNING
// ===============================

const awardReturning = `
	id, user_id, badge_id, earned_at, earned_from,
	is_visible, is_pinned, pin_order, pinned_at`

func awardScanArgs(award *models.UserBadge) []interface{} {
	return []interface{}{
		&award.ID, &award.UserID, &award.BadgeID,
		&award.EarnedAt, &award.EarnedFrom,
		&award.IsVisible, &award.IsPinned,
		&award.PinOrder, &award.PinnedAt,
	}
}

func (r *userBadgeRepository) collectAwards(rows *sql.Rows) ([]*models.UserBadge, error) {
	var awards []*models.UserBadge
	for rows.Next() {
		var award models.UserBadge
		var badge models.Badge
		var criteria models.Criteria

		err := rows.Scan(
			&award.ID, &award.UserID, &award.BadgeID,
			&award.EarnedAt, &award.EarnedFrom,
			&award.IsVisible, &award.IsPinned,
			&award.PinOrder, &award.PinnedAt,
			&badge.ID, &badge.Key, &badge.Name, &badge.Description,
			&badge.Icon, &badge.Color, &badge.Category, &badge.Type,
			&badge.Rarity, &criteria, &badge.RequiredRoles,
			&badge.PointsReward, &badge.IsActive,
			&badge.CreatedAt, &badge.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		if criteria.Type != "" {
			badge.Criteria = &criteria
		}
		award.Badge = &badge
		awards = append(awards, &award)
	}
	return awards, rows.Err()
}

// lowestFreeSlot returns the smallest slot in {1..MaxPinnedBadges} not yet
// taken, or 0 when every slot is occupied. Unpinning frees a slot, so the gap
// left by unpinning slot 2 is reused before slot 3 moves.
func lowestFreeSlot(taken map[int]bool) int {
	for candidate := 1; candidate <= models.MaxPinnedBadges; candidate++ {
		if !taken[candidate] {
			return candidate
		}
	}
	return 0
}
