// file: internal/repositories/scoring_rule_repository.go
package repositories

import (
	"alphahub/internal/database"
	"alphahub/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// scoringRuleRepository implements ScoringRuleRepository over the
// engagement_criteria catalogue table. Bonuses, multipliers, and requirements
// live in JSONB columns so the catalogue stays data-driven.
type scoringRuleRepository struct {
	*BaseRepository
}

// NewScoringRuleRepository creates a new scoring rule repository.
func NewScoringRuleRepository(db *database.Manager, logger *zap.Logger) ScoringRuleRepository {
	return &scoringRuleRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const scoringRuleColumns = `
	ec.id, ec.name, ec.kind, ec.priority, ec.base_points,
	ec.bonuses, ec.multipliers, ec.requirements,
	ec.valid_from, ec.valid_until, ec.active_hours_start, ec.active_hours_end,
	ec.is_active, ec.created_at, ec.updated_at`

// GetByID retrieves a scoring rule by ID.
func (r *scoringRuleRepository) GetByID(ctx context.Context, id int64) (*models.EngagementCriteria, error) {
	query := fmt.Sprintf(`SELECT %s FROM engagement_criteria ec WHERE ec.id = $1`, scoringRuleColumns)

	rule, err := r.scanRule(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scoring rule by ID: %w", err)
	}

	return rule, nil
}

// GetActiveByKinds retrieves active scoring rules for the requested
// engagement kinds, highest priority first. Every matching rule is a
// candidate; priority orders evaluation, it does not make rules exclusive.
func (r *scoringRuleRepository) GetActiveByKinds(ctx context.Context, kinds []string) ([]*models.EngagementCriteria, error) {
	if len(kinds) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(kinds))
	placeholders := make([]string, len(kinds))
	for i, kind := range kinds {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = kind
	}

	query := fmt.Sprintf(`
		SELECT %s FROM engagement_criteria ec
		WHERE ec.is_active = true AND ec.kind IN (%s)
		ORDER BY ec.priority DESC, ec.id`,
		scoringRuleColumns, strings.Join(placeholders, ", "))

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active scoring rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.EngagementCriteria
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *scoringRuleRepository) scanRule(row rowScanner) (*models.EngagementCriteria, error) {
	var rule models.EngagementCriteria
	var bonuses, multipliers, requirements []byte

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Kind, &rule.Priority, &rule.BasePoints,
		&bonuses, &multipliers, &requirements,
		&rule.ValidFrom, &rule.ValidUntil,
		&rule.ActiveHoursStart, &rule.ActiveHoursEnd,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(bonuses) > 0 {
		if err := json.Unmarshal(bonuses, &rule.Bonuses); err != nil {
			return nil, fmt.Errorf("failed to decode rule bonuses: %w", err)
		}
	}
	if len(multipliers) > 0 {
		if err := json.Unmarshal(multipliers, &rule.Multipliers); err != nil {
			return nil, fmt.Errorf("failed to decode rule multipliers: %w", err)
		}
	}
	if len(requirements) > 0 {
		if err := json.Unmarshal(requirements, &rule.Requirements); err != nil {
			return nil, fmt.Errorf("failed to decode rule requirements: %w", err)
		}
	}

	return &rule, nil
}
