// file: internal/events/reward_events.go
package events

import "time"

// BadgeAwardedEvent is emitted exactly once per (user, badge) pair, when the
// award row is first created. Notification and real-time fan-out subscribe to
// it; the engine never notifies directly.
type BadgeAwardedEvent struct {
	BaseEvent
	UserID       int64  `json:"user_id"`
	BadgeID      int64  `json:"badge_id"`
	BadgeKey     string `json:"badge_key"`
	BadgeName    string `json:"badge_name"`
	Rarity       string `json:"rarity"`
	PointsReward int    `json:"points_reward"`
	Provenance   string `json:"provenance"`
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent
func NewBadgeAwardedEvent(userID, badgeID int64, badgeKey, badgeName, rarity string, pointsReward int, provenance string) *BadgeAwardedEvent {
	return &BadgeAwardedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "badge.awarded",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		UserID:       userID,
		BadgeID:      badgeID,
		BadgeKey:     badgeKey,
		BadgeName:    badgeName,
		Rarity:       rarity,
		PointsReward: pointsReward,
		Provenance:   provenance,
	}
}

// BadgePinnedEvent is emitted when a user pins an earned badge to a slot.
type BadgePinnedEvent struct {
	BaseEvent
	UserID  int64 `json:"user_id"`
	BadgeID int64 `json:"badge_id"`
	Slot    int   `json:"slot"`
}

// NewBadgePinnedEvent creates a new BadgePinnedEvent
func NewBadgePinnedEvent(userID, badgeID int64, slot int) *BadgePinnedEvent {
	return &BadgePinnedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "badge.pinned",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		UserID:  userID,
		BadgeID: badgeID,
		Slot:    slot,
	}
}

// EngagementRecordedEvent is emitted when an engagement record is persisted
// with its computed point total.
type EngagementRecordedEvent struct {
	BaseEvent
	UserID      int64    `json:"user_id"`
	PostID      int64    `json:"post_id"`
	AuthorID    int64    `json:"author_id"`
	Kinds       []string `json:"kinds"`
	TotalPoints int      `json:"total_points"`
}

// NewEngagementRecordedEvent creates a new EngagementRecordedEvent
func NewEngagementRecordedEvent(userID, postID, authorID int64, kinds []string, totalPoints int) *EngagementRecordedEvent {
	return &EngagementRecordedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "engagement.recorded",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		UserID:      userID,
		PostID:      postID,
		AuthorID:    authorID,
		Kinds:       kinds,
		TotalPoints: totalPoints,
	}
}
