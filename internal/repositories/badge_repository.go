// file: internal/repositories/badge_repository.go
package repositories

import (
	"alphahub/internal/database"
	"alphahub/internal/models"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over the badges catalogue table.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge catalogue repository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeColumns = `
	b.id, b.key, b.name, b.description, b.icon, b.color,
	b.category, b.type, b.rarity, b.criteria, b.required_roles,
	b.points_reward, b.is_active, b.created_at, b.updated_at`

// GetByID retrieves a badge definition by ID.
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges b WHERE b.id = $1`, badgeColumns)

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by ID: %w", err)
	}

	return badge, nil
}

// GetByKey retrieves a badge definition by its stable key.
func (r *badgeRepository) GetByKey(ctx context.Context, key string) (*models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges b WHERE b.key = $1`, badgeColumns)

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, key))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by key: %w", err)
	}

	return badge, nil
}

// GetActiveByTypes retrieves active badges of the given types, optionally
// scoped to one category. Sweeps use this so only the relevant module's rules
// get evaluated.
func (r *badgeRepository) GetActiveByTypes(ctx context.Context, badgeTypes []string, category string) ([]*models.Badge, error) {
	if len(badgeTypes) == 0 {
		return nil, nil
	}

	args := make([]interface{}, 0, len(badgeTypes)+1)
	placeholders := make([]string, len(badgeTypes))
	for i, t := range badgeTypes {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, t)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM badges b
		WHERE b.is_active = true AND b.type IN (%s)`,
		badgeColumns, strings.Join(placeholders, ", "))

	if category != "" {
		query += fmt.Sprintf(" AND b.category = $%d", len(badgeTypes)+1)
		args = append(args, category)
	}
	query += " ORDER BY b.id"

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active badges: %w", err)
	}
	defer rows.Close()

	return r.collectBadges(rows)
}

// List retrieves the badge catalogue, optionally filtered by category.
func (r *badgeRepository) List(ctx context.Context, category string, params models.PaginationParams) (*models.PaginatedResponse[*models.Badge], error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	where := "b.is_active = true"
	args := []interface{}{}
	if category != "" {
		where += " AND b.category = $1"
		args = append(args, category)
	}

	total, err := r.GetTotalCount(ctx, "SELECT COUNT(*) FROM badges b WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count badges: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM badges b
		WHERE %s
		ORDER BY b.category, b.rarity, b.id
		LIMIT $%d OFFSET $%d`,
		badgeColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	badges, err := r.collectBadges(rows)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedResponse[*models.Badge]{
		Data:       badges,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// ===============================
// SCANNING
// ===============================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *badgeRepository) scanBadge(row rowScanner) (*models.Badge, error) {
	var badge models.Badge
	var criteria models.Criteria

	err := row.Scan(
		&badge.ID, &badge.Key, &badge.Name, &badge.Description,
		&badge.Icon, &badge.Color, &badge.Category, &badge.Type,
		&badge.Rarity, &criteria, &badge.RequiredRoles,
		&badge.PointsReward, &badge.IsActive,
		&badge.CreatedAt, &badge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// A NULL criteria column leaves the zero value behind; role and special
	// badges have no criteria record.
	if criteria.Type != "" {
		badge.Criteria = &criteria
	}

	return &badge, nil
}

func (r *badgeRepository) collectBadges(rows *sql.Rows) ([]*models.Badge, error) {
	var badges []*models.Badge
	for rows.Next() {
		badge, err := r.scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}
