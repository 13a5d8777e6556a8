// file: internal/models/engagement.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ===============================
// ENGAGEMENT KINDS
// ===============================

// Social engagement kinds a scoring rule can price.
const (
	EngagementLike     = "like"
	EngagementRetweet  = "retweet"
	EngagementQuote    = "quote"
	EngagementReply    = "reply"
	EngagementBookmark = "bookmark"
	EngagementView     = "view"
)

// IsValidEngagementKind reports whether kind is one of the supported
// engagement kinds.
func IsValidEngagementKind(kind string) bool {
	switch kind {
	case EngagementLike, EngagementRetweet, EngagementQuote,
		EngagementReply, EngagementBookmark, EngagementView:
		return true
	}
	return false
}

// ===============================
// SCORING RULES
// ===============================

// Bonus condition types (closed catalogue).
const (
	BonusEngagementCount = "engagement_count"
	BonusQualityRatio    = "quality_ratio"
	BonusFollowerCount   = "follower_count"
)

// Multiplier conditions (closed catalogue).
const (
	MultiplierWeekend  = "weekend"
	MultiplierCampaign = "campaign"
)

// BonusCondition adds bonus points to a rule's base when the acting user's
// measured value reaches the threshold. quality_ratio thresholds are
// expressed as a percentage (75 means 75% verified engagements).
type BonusCondition struct {
	ConditionType string  `json:"condition_type" validate:"required"`
	Threshold     float64 `json:"threshold" validate:"min=0"`
	BonusPoints   int     `json:"bonus_points" validate:"min=0"`
}

// Multiplier scales (base + bonus) when its condition holds. Multipliers that
// apply compound multiplicatively. A zero ValidFrom/ValidUntil means no
// window restriction on the multiplier itself.
type Multiplier struct {
	Condition  string     `json:"condition" validate:"required"`
	Factor     float64    `json:"factor" validate:"gt=0"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// ActiveWithin reports whether the multiplier's own validity window covers
// now. Nil bounds are open.
func (m *Multiplier) ActiveWithin(now time.Time) bool {
	if m.ValidFrom != nil && now.Before(*m.ValidFrom) {
		return false
	}
	if m.ValidUntil != nil && now.After(*m.ValidUntil) {
		return false
	}
	return true
}

// Requirements are eligibility gates evaluated against the acting user's
// current profile before a rule contributes any points.
type Requirements struct {
	MinFollowers      int  `json:"min_followers" validate:"min=0"`
	MinAccountAgeDays int  `json:"min_account_age_days" validate:"min=0"`
	RequireVerified   bool `json:"require_verified"`
	MaxPerDay         int  `json:"max_per_day" validate:"min=0"`
	CooldownMinutes   int  `json:"cooldown_minutes" validate:"min=0"`
}

// EngagementCriteria is an administrator-defined scoring rule for one
// engagement kind. Rules of the same kind are additive: every active rule
// that matches contributes to the total. Priority orders evaluation (and the
// breakdown), it does not make rules exclusive.
type EngagementCriteria struct {
	ID               int64            `json:"id" db:"id"`
	Name             string           `json:"name" db:"name" validate:"required,max=150"`
	Kind             string           `json:"kind" db:"kind" validate:"required,oneof=like retweet quote reply bookmark view"`
	Priority         int              `json:"priority" db:"priority"`
	BasePoints       int              `json:"base_points" db:"base_points" validate:"min=0"`
	Bonuses          []BonusCondition `json:"bonuses,omitempty" db:"-"`
	Multipliers      []Multiplier     `json:"multipliers,omitempty" db:"-"`
	Requirements     Requirements     `json:"requirements" db:"-"`
	ValidFrom        *time.Time       `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil       *time.Time       `json:"valid_until,omitempty" db:"valid_until"`
	ActiveHoursStart *int             `json:"active_hours_start,omitempty" db:"active_hours_start"`
	ActiveHoursEnd   *int             `json:"active_hours_end,omitempty" db:"active_hours_end"`
	IsActive         bool             `json:"is_active" db:"is_active"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty" db:"updated_at"`
}

// WithinValidity reports whether now falls inside the rule's validity window.
// Nil bounds are open.
func (c *EngagementCriteria) WithinValidity(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// WithinActiveHours reports whether now's hour falls inside the rule's
// active-hours window. A start greater than end wraps past midnight: a 22-2
// window matches 23:00 and 01:00 but not 12:00. Unset hours mean always
// active.
func (c *EngagementCriteria) WithinActiveHours(now time.Time) bool {
	if c.ActiveHoursStart == nil || c.ActiveHoursEnd == nil {
		return true
	}
	start, end := *c.ActiveHoursStart, *c.ActiveHoursEnd
	hour := now.Hour()
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}

// ===============================
// ENGAGEMENT RECORDS
// ===============================

// Engagement verification statuses.
const (
	EngagementStatusPending      = "pending"
	EngagementStatusVerified     = "verified"
	EngagementStatusRejected     = "rejected"
	EngagementStatusAutoVerified = "auto_verified"
)

// PointsBreakdownEntry records one matched rule's contribution with full
// provenance, including a human-readable reason.
type PointsBreakdownEntry struct {
	RuleID      int64   `json:"rule_id"`
	RuleName    string  `json:"rule_name"`
	Kind        string  `json:"kind"`
	BasePoints  int     `json:"base_points"`
	BonusPoints int     `json:"bonus_points"`
	Multiplier  float64 `json:"multiplier"`
	Total       int     `json:"total"`
	Reason      string  `json:"reason"`
}

// PointsBreakdown persists as a JSONB column.
type PointsBreakdown []PointsBreakdownEntry

// Value implements driver.Valuer.
func (b PointsBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return json.Marshal(PointsBreakdown{})
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *PointsBreakdown) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("points breakdown: cannot scan %T", value)
	}
	return json.Unmarshal(raw, b)
}

// KindList persists the claimed engagement kinds as JSONB.
type KindList []string

// Value implements driver.Valuer.
func (k KindList) Value() (driver.Value, error) {
	if k == nil {
		return json.Marshal(KindList{})
	}
	return json.Marshal(k)
}

// Scan implements sql.Scanner.
func (k *KindList) Scan(value interface{}) error {
	if value == nil {
		*k = nil
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("kind list: cannot scan %T", value)
	}
	return json.Unmarshal(raw, k)
}

// Engagement is the unique record of one user's social action toward another
// user's post. Follower count and account age are snapshotted at the time of
// the event so later profile changes cannot retroactively alter a grant.
type Engagement struct {
	ID               int64           `json:"id" db:"id"`
	UserID           int64           `json:"user_id" db:"user_id" validate:"required"`
	PostID           int64           `json:"post_id" db:"post_id" validate:"required"`
	Kinds            KindList        `json:"kinds" db:"kinds"`
	Breakdown        PointsBreakdown `json:"breakdown" db:"breakdown"`
	TotalPoints      int             `json:"total_points" db:"total_points"`
	Status           string          `json:"status" db:"status" validate:"oneof=pending verified rejected auto_verified"`
	FollowerCountAt  int             `json:"follower_count_at" db:"follower_count_at"`
	AccountAgeDaysAt int             `json:"account_age_days_at" db:"account_age_days_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
