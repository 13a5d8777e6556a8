// file: internal/models/models.go
package models

import (
	"time"
)

// ===============================
// CONSUMED ENTITIES
// ===============================
//
// The rewards engine does not own users or posts; it consumes them through
// the shapes below and writes back only award and engagement records.

// User is the engine's view of a platform user. Profile lifecycle (signup,
// auth, uploads) is owned by the application layer.
type User struct {
	ID            int64     `json:"id" db:"id"`
	Username      string    `json:"username" db:"username" validate:"required,min=3,max=50"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	Role          string    `json:"role" db:"role" validate:"required,oneof=user mentor designer analyst moderator admin"`
	IsVerified    bool      `json:"is_verified" db:"is_verified"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	FollowerCount int       `json:"follower_count" db:"follower_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Joined from user_stats (not columns on users)
	ReputationPoints   int `json:"reputation_points,omitempty" db:"-"`
	TotalContributions int `json:"total_contributions,omitempty" db:"-"`
	BadgeCount         int `json:"badge_count,omitempty" db:"-"`
}

// AccountAgeDays returns whole days since the user joined, evaluated at now.
func (u *User) AccountAgeDays(now time.Time) int {
	if now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}

// PostRef is the engine's view of a social post: just enough to enforce the
// self-engagement and target-exists preconditions.
type PostRef struct {
	ID        int64     `json:"id" db:"id"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	Module    string    `json:"module" db:"module"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ===============================
// MODULES
// ===============================

// Platform modules badges and content are scoped to.
const (
	ModuleContent = "content"
	ModuleCourses = "courses"
	ModuleDesigns = "designs"
	ModuleAlpha   = "alpha"
	ModuleSocial  = "social"
)

// Modules lists every known module, in display order.
func Modules() []string {
	return []string{ModuleContent, ModuleCourses, ModuleDesigns, ModuleAlpha, ModuleSocial}
}

// IsValidModule reports whether name is a known platform module.
func IsValidModule(name string) bool {
	switch name {
	case ModuleContent, ModuleCourses, ModuleDesigns, ModuleAlpha, ModuleSocial:
		return true
	}
	return false
}

// ===============================
// PAGINATION & QUERY HELPERS
// ===============================

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Sort   string `json:"sort,omitempty" validate:"omitempty,oneof=created_at earned_at total_points"`
	Order  string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// PaginatedResponse represents a paginated response
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}
