// file: internal/services/types.go
package services

import (
	"alphahub/internal/models"
)

// ===============================
// POINTS ENGINE TYPES
// ===============================

// CalculatePointsRequest asks for a score preview or the scoring half of a
// commit. Kinds is the set of engagement kinds the acting user claims.
type CalculatePointsRequest struct {
	ActorID int64    `json:"actor_id" validate:"required,gt=0"`
	PostID  int64    `json:"post_id" validate:"required,gt=0"`
	Kinds   []string `json:"kinds" validate:"required,min=1,max=6,dive,oneof=like retweet quote reply bookmark view"`
}

// PointsResult carries the total and the full per-rule breakdown. The
// breakdown is returned even when the total is zero so callers can show why
// no points were earned.
type PointsResult struct {
	ActorID   int64                  `json:"actor_id"`
	PostID    int64                  `json:"post_id"`
	Kinds     []string               `json:"kinds"`
	Total     int                    `json:"total"`
	Breakdown models.PointsBreakdown `json:"breakdown"`

	// Profile snapshot taken during calculation, persisted on commit.
	FollowerCountAt  int `json:"follower_count_at"`
	AccountAgeDaysAt int `json:"account_age_days_at"`
}

// RecordEngagementRequest commits an engagement after the caller has decided
// to persist it.
type RecordEngagementRequest struct {
	ActorID int64    `json:"actor_id" validate:"required,gt=0"`
	PostID  int64    `json:"post_id" validate:"required,gt=0"`
	Kinds   []string `json:"kinds" validate:"required,min=1,max=6,dive,oneof=like retweet quote reply bookmark view"`
}

// ===============================
// AWARD MANAGER TYPES
// ===============================

// Provenance tags recorded on awards so a badge always says where it came
// from.
const (
	ProvenanceRoleSweep     = "role_sweep"
	ProvenanceActivitySweep = "activity_sweep"
	ProvenanceManualCheck   = "manual_check"
	ProvenanceAdminGrant    = "admin_grant"
)

// SweepResult summarizes one badge-checking sweep for logging and worker
// metrics.
type SweepResult struct {
	UserID    int64 `json:"user_id"`
	Evaluated int   `json:"evaluated"`
	Awarded   int   `json:"awarded"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
}
