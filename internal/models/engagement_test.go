// file: internal/models/engagement_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hoursWindow(start, end int) *EngagementCriteria {
	return &EngagementCriteria{ActiveHoursStart: &start, ActiveHoursEnd: &end}
}

func atHour(hour int) time.Time {
	return time.Date(2026, 8, 26, hour, 30, 0, 0, time.UTC)
}

func TestWithinActiveHoursPlainWindow(t *testing.T) {
	rule := hoursWindow(9, 17)

	assert.True(t, rule.WithinActiveHours(atHour(9)))
	assert.True(t, rule.WithinActiveHours(atHour(12)))
	assert.True(t, rule.WithinActiveHours(atHour(17)))
	assert.False(t, rule.WithinActiveHours(atHour(8)))
	assert.False(t, rule.WithinActiveHours(atHour(18)))
}

func TestWithinActiveHoursMidnightWrap(t *testing.T) {
	// A 22-2 window wraps past midnight: it covers 23:00 and 01:00 but
	// never midday.
	rule := hoursWindow(22, 2)

	assert.True(t, rule.WithinActiveHours(atHour(22)))
	assert.True(t, rule.WithinActiveHours(atHour(23)))
	assert.True(t, rule.WithinActiveHours(atHour(0)))
	assert.True(t, rule.WithinActiveHours(atHour(1)))
	assert.True(t, rule.WithinActiveHours(atHour(2)))
	assert.False(t, rule.WithinActiveHours(atHour(12)))
	assert.False(t, rule.WithinActiveHours(atHour(3)))
	assert.False(t, rule.WithinActiveHours(atHour(21)))
}

func TestWithinActiveHoursUnsetMeansAlways(t *testing.T) {
	rule := &EngagementCriteria{}
	assert.True(t, rule.WithinActiveHours(atHour(0)))
	assert.True(t, rule.WithinActiveHours(atHour(13)))
}

func TestWithinValidity(t *testing.T) {
	now := atHour(12)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	open := &EngagementCriteria{}
	assert.True(t, open.WithinValidity(now))

	active := &EngagementCriteria{ValidFrom: &past, ValidUntil: &future}
	assert.True(t, active.WithinValidity(now))

	expired := &EngagementCriteria{ValidUntil: &past}
	assert.False(t, expired.WithinValidity(now))

	upcoming := &EngagementCriteria{ValidFrom: &future}
	assert.False(t, upcoming.WithinValidity(now))
}

func TestMultiplierActiveWithin(t *testing.T) {
	now := atHour(12)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	unbounded := &Multiplier{Condition: MultiplierWeekend, Factor: 2}
	assert.True(t, unbounded.ActiveWithin(now))

	window := &Multiplier{Condition: MultiplierCampaign, Factor: 1.5, ValidFrom: &past, ValidUntil: &future}
	assert.True(t, window.ActiveWithin(now))

	over := &Multiplier{Condition: MultiplierCampaign, Factor: 1.5, ValidUntil: &past}
	assert.False(t, over.ActiveWithin(now))
}

func TestUserAccountAgeDays(t *testing.T) {
	joined := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	user := &User{CreatedAt: joined}

	assert.Equal(t, 0, user.AccountAgeDays(joined))
	assert.Equal(t, 0, user.AccountAgeDays(joined.Add(23*time.Hour)))
	assert.Equal(t, 1, user.AccountAgeDays(joined.Add(24*time.Hour)))
	assert.Equal(t, 30, user.AccountAgeDays(joined.AddDate(0, 0, 30)))

	// A clock that reads before signup never yields a negative age.
	assert.Equal(t, 0, user.AccountAgeDays(joined.Add(-time.Hour)))
}
