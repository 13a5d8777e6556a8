// file: internal/models/badge.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ===============================
// BADGE DEFINITIONS
// ===============================

// Badge types.
const (
	BadgeTypeRole        = "role"
	BadgeTypeActivity    = "activity"
	BadgeTypeAchievement = "achievement"
	BadgeTypeSpecial     = "special"
)

// Badge rarities, from most to least common.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Badge represents an administrator-defined achievement badge. A badge is
// immutable at evaluation time: the engine reads the catalogue, it never
// writes it.
type Badge struct {
	ID            int64      `json:"id" db:"id"`
	Key           string     `json:"key" db:"key" validate:"required,max=100"`
	Name          string     `json:"name" db:"name" validate:"required,max=150"`
	Description   string     `json:"description" db:"description"`
	Icon          string     `json:"icon" db:"icon"`
	Color         string     `json:"color" db:"color"`
	Category      string     `json:"category" db:"category" validate:"required,oneof=content courses designs alpha social"`
	Type          string     `json:"type" db:"type" validate:"required,oneof=role activity achievement special"`
	Rarity        string     `json:"rarity" db:"rarity" validate:"required,oneof=common rare epic legendary"`
	Criteria      *Criteria  `json:"criteria,omitempty" db:"criteria"`
	RequiredRoles RoleList   `json:"required_roles,omitempty" db:"required_roles"`
	PointsReward  int        `json:"points_reward" db:"points_reward" validate:"min=0"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ===============================
// CRITERIA (CLOSED CATALOGUE)
// ===============================

// CriterionType discriminates the closed criteria catalogue. Administrators
// select from these at rule-authoring time; the engine never sees a type
// outside this set except through misconfiguration, which it treats as
// non-matching rather than an error.
type CriterionType string

const (
	CriterionContentCount      CriterionType = "content_count"
	CriterionLikeCount         CriterionType = "like_count"
	CriterionCommentCount      CriterionType = "comment_count"
	CriterionCourseCompletions CriterionType = "course_completions"
	CriterionRatingCount       CriterionType = "rating_count"
	CriterionAverageRating     CriterionType = "average_rating"
	CriterionReputationPoints  CriterionType = "reputation_points"
	CriterionContributionTotal CriterionType = "contribution_total"
	CriterionAccountAgeDays    CriterionType = "account_age_days"
	CriterionRoleLinked        CriterionType = "role_linked"
	CriterionEarlyAdopter      CriterionType = "early_adopter"
)

// IsKnown reports whether the criterion type belongs to the closed catalogue.
func (t CriterionType) IsKnown() bool {
	switch t {
	case CriterionContentCount, CriterionLikeCount, CriterionCommentCount,
		CriterionCourseCompletions, CriterionRatingCount, CriterionAverageRating,
		CriterionReputationPoints, CriterionContributionTotal,
		CriterionAccountAgeDays, CriterionRoleLinked, CriterionEarlyAdopter:
		return true
	}
	return false
}

// Comparison operators for criteria thresholds.
const (
	OpGTE = "gte"
	OpGT  = "gt"
	OpLTE = "lte"
	OpLT  = "lt"
	OpEQ  = "eq"
)

// Criteria is the typed eligibility condition attached to activity and
// achievement badges. Target is compared with Operator (default gte) against
// the measurement Type resolves to. SingleInstance switches aggregation from
// sum-across-items to max-over-items: "one post with 100 likes" rather than
// "100 likes in total".
type Criteria struct {
	Type           CriterionType `json:"type" validate:"required"`
	Target         int64         `json:"target" validate:"min=0"`
	Operator       string        `json:"operator,omitempty" validate:"omitempty,oneof=gte gt lte lt eq"`
	ContentType    string        `json:"content_type,omitempty"`
	Module         string        `json:"module,omitempty"`
	SingleInstance bool          `json:"single_instance,omitempty"`
	WindowDays     int           `json:"window_days,omitempty" validate:"min=0"`
	Role           string        `json:"role,omitempty"`
}

// EffectiveOperator returns the comparison operator, defaulting to gte.
func (c *Criteria) EffectiveOperator() string {
	if c.Operator == "" {
		return OpGTE
	}
	return c.Operator
}

// Compare applies the criteria operator to a resolved measurement. Unknown
// operators compare false so a malformed rule cannot match by accident.
func (c *Criteria) Compare(value int64) bool {
	switch c.EffectiveOperator() {
	case OpGTE:
		return value >= c.Target
	case OpGT:
		return value > c.Target
	case OpLTE:
		return value <= c.Target
	case OpLT:
		return value < c.Target
	case OpEQ:
		return value == c.Target
	}
	return false
}

// Value implements driver.Valuer so criteria persist as JSONB.
func (c *Criteria) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB criteria columns.
func (c *Criteria) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("criteria: cannot scan %T", value)
	}
	return json.Unmarshal(b, c)
}

// RoleList handles the required_roles JSONB column on role-type badges.
type RoleList []string

// Contains reports whether the list includes role.
func (r RoleList) Contains(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *RoleList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("role list: cannot scan %T", value)
	}
	return json.Unmarshal(b, r)
}

// ===============================
// USER BADGES (AWARDS)
// ===============================

// MaxPinnedBadges is the hard cap on simultaneously pinned awards per user.
const MaxPinnedBadges = 3

// UserBadge records that a user satisfied a badge exactly once. Uniqueness of
// (user_id, badge_id) is enforced by the schema, not just here.
type UserBadge struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id" validate:"required"`
	BadgeID    int64      `json:"badge_id" db:"badge_id" validate:"required"`
	EarnedAt   time.Time  `json:"earned_at" db:"earned_at"`
	EarnedFrom string     `json:"earned_from" db:"earned_from"`
	IsVisible  bool       `json:"is_visible" db:"is_visible"`
	IsPinned   bool       `json:"is_pinned" db:"is_pinned"`
	PinOrder   *int       `json:"pin_order,omitempty" db:"pin_order"`
	PinnedAt   *time.Time `json:"pinned_at,omitempty" db:"pinned_at"`

	// Joined from badges for display
	Badge *Badge `json:"badge,omitempty" db:"-"`
}

// BadgeStats aggregates a user's visible awards for profile display.
type BadgeStats struct {
	UserID     int64            `json:"user_id"`
	Total      int              `json:"total"`
	ByRarity   map[string]int   `json:"by_rarity"`
	ByCategory map[string]int   `json:"by_category"`
	Pinned     []*UserBadge     `json:"pinned,omitempty"`
}
