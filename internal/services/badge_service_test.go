// file: internal/services/badge_service_test.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"alphahub/internal/cache"
	"alphahub/internal/models"
	"alphahub/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type badgeServiceFixture struct {
	service    BadgeService
	badges     *mockBadgeRepo
	userBadges *mockUserBadgeRepo
	users      *mockUserRepo
	activity   *mockActivityRepo
	bus        *mockEventBus
	cache      cache.Cache
}

func newBadgeServiceFixture(badges []*models.Badge, users []*models.User, activity *mockActivityRepo) *badgeServiceFixture {
	logger := zap.NewNop()
	if activity == nil {
		activity = &mockActivityRepo{}
	}

	badgeRepo := newMockBadgeRepo(badges...)
	userBadgeRepo := newMockUserBadgeRepo()
	userRepo := newMockUserRepo(users...)
	bus := &mockEventBus{}
	evaluator := NewCriteriaEvaluator(activity, userRepo, logger)
	memCache := cache.NewMemoryCache(cache.DefaultConfig(), logger)

	service := NewBadgeService(
		badgeRepo, userBadgeRepo, userRepo, evaluator,
		memCache, bus, logger,
	)

	return &badgeServiceFixture{
		service:    service,
		badges:     badgeRepo,
		userBadges: userBadgeRepo,
		users:      userRepo,
		activity:   activity,
		bus:        bus,
		cache:      memCache,
	}
}

// ===============================
// AWARDING
// ===============================

func TestAwardIsIdempotent(t *testing.T) {
	badge := &models.Badge{
		ID: 1, Key: "first_post", Name: "First Post",
		Category: models.ModuleContent, Type: models.BadgeTypeActivity,
		Rarity: models.RarityCommon, PointsReward: 10, IsActive: true,
	}
	fx := newBadgeServiceFixture([]*models.Badge{badge}, nil, nil)
	ctx := context.Background()

	awarded, err := fx.service.Award(ctx, 1, 1, ProvenanceManualCheck)
	require.NoError(t, err)
	assert.True(t, awarded, "first award should succeed")

	// The second attempt finds the award already held: no error, no event.
	awarded, err = fx.service.Award(ctx, 1, 1, ProvenanceManualCheck)
	require.NoError(t, err)
	assert.False(t, awarded, "repeat award must be a silent no-op")

	assert.Len(t, fx.bus.eventsOfType("badge.awarded"), 1,
		"exactly one awarded event despite two attempts")
	assert.Equal(t, 10, fx.users.reputation[1],
		"points credited exactly once")
}

func TestAwardConcurrentDuplicates(t *testing.T) {
	badge := &models.Badge{
		ID: 1, Key: "first_post", Name: "First Post",
		Category: models.ModuleContent, Type: models.BadgeTypeActivity,
		Rarity: models.RarityCommon, PointsReward: 10, IsActive: true,
	}
	fx := newBadgeServiceFixture([]*models.Badge{badge}, nil, nil)
	ctx := context.Background()

	// Racing sweeps all attempt the same award; the storage layer decides
	// the winner and every loser sees (false, nil).
	const racers = 8
	results := make([]bool, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			awarded, err := fx.service.Award(ctx, 1, 1, ProvenanceActivitySweep)
			assert.NoError(t, err)
			results[i] = awarded
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, won := range results {
		if won {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one racer observes the award")
	assert.Len(t, fx.bus.eventsOfType("badge.awarded"), 1,
		"a single awarded event despite racing attempts")
	assert.Equal(t, 10, fx.users.reputation[1], "points credited exactly once")
}

func TestAwardUnknownBadge(t *testing.T) {
	fx := newBadgeServiceFixture(nil, nil, nil)

	awarded, err := fx.service.Award(context.Background(), 1, 99, ProvenanceManualCheck)
	assert.False(t, awarded)
	assert.True(t, IsNotFoundError(err))
}

// ===============================
// SWEEPS
// ===============================

func TestCheckRoleBadgesAwardsMatchingRole(t *testing.T) {
	mentorBadge := &models.Badge{
		ID: 1, Key: "mentor", Name: "Mentor",
		Category: models.ModuleCourses, Type: models.BadgeTypeRole,
		RequiredRoles: models.RoleList{"mentor"}, IsActive: true,
	}
	adminBadge := &models.Badge{
		ID: 2, Key: "moderator", Name: "Moderator",
		Category: models.ModuleSocial, Type: models.BadgeTypeRole,
		RequiredRoles: models.RoleList{"moderator", "admin"}, IsActive: true,
	}
	user := &models.User{ID: 5, Role: "mentor", CreatedAt: time.Now()}

	fx := newBadgeServiceFixture([]*models.Badge{mentorBadge, adminBadge}, []*models.User{user}, nil)

	awarded, err := fx.service.CheckRoleBadges(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, int64(1), awarded[0].BadgeID, "only the mentor badge matches the mentor role")
	assert.Equal(t, ProvenanceRoleSweep, awarded[0].EarnedFrom)
}

func TestCheckActivityBadgesFirstPost(t *testing.T) {
	// The classic onboarding badge: one published item in the content module.
	firstPost := &models.Badge{
		ID: 1, Key: "first_post", Name: "First Post",
		Category: models.ModuleContent, Type: models.BadgeTypeActivity,
		Rarity: models.RarityCommon, PointsReward: 5, IsActive: true,
		Criteria: &models.Criteria{
			Type:   models.CriterionContentCount,
			Target: 1,
			Module: models.ModuleContent,
		},
	}
	user := &models.User{ID: 9, Role: "user", CreatedAt: time.Now()}
	activity := &mockActivityRepo{contentCount: 1}

	fx := newBadgeServiceFixture([]*models.Badge{firstPost}, []*models.User{user}, activity)
	ctx := context.Background()

	awarded, err := fx.service.CheckActivityBadges(ctx, 9, models.ModuleContent)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "first_post", awarded[0].Badge.Key)
	assert.Equal(t, 5, fx.users.reputation[9], "badge points granted on award")
	assert.Len(t, fx.bus.eventsOfType("badge.awarded"), 1)

	// Re-running the sweep changes nothing.
	awarded, err = fx.service.CheckActivityBadges(ctx, 9, models.ModuleContent)
	require.NoError(t, err)
	assert.Empty(t, awarded)
	assert.Equal(t, 5, fx.users.reputation[9])
}

func TestCheckActivityBadgesSkipsHeldAndNonMatching(t *testing.T) {
	held := &models.Badge{
		ID: 1, Key: "held", Name: "Held",
		Category: models.ModuleContent, Type: models.BadgeTypeActivity, IsActive: true,
		Criteria: &models.Criteria{Type: models.CriterionContentCount, Target: 1},
	}
	outOfReach := &models.Badge{
		ID: 2, Key: "prolific", Name: "Prolific",
		Category: models.ModuleContent, Type: models.BadgeTypeAchievement, IsActive: true,
		Criteria: &models.Criteria{Type: models.CriterionContentCount, Target: 100},
	}
	user := &models.User{ID: 4, Role: "user", CreatedAt: time.Now()}
	activity := &mockActivityRepo{contentCount: 3}

	fx := newBadgeServiceFixture([]*models.Badge{held, outOfReach}, []*models.User{user}, activity)
	ctx := context.Background()

	_, err := fx.service.Award(ctx, 4, 1, ProvenanceAdminGrant)
	require.NoError(t, err)

	awarded, err := fx.service.CheckActivityBadges(ctx, 4, "")
	require.NoError(t, err)
	assert.Empty(t, awarded, "held badge skipped, out-of-reach badge not matched")
}

func TestSweepContinuesPastFailingRule(t *testing.T) {
	// One badge whose measurement errors, one that works. The failing rule
	// must not prevent the healthy one from awarding.
	broken := &models.Badge{
		ID: 1, Key: "broken", Name: "Broken",
		Category: models.ModuleCourses, Type: models.BadgeTypeActivity, IsActive: true,
		Criteria: &models.Criteria{Type: models.CriterionCourseCompletions, Target: 1},
	}
	healthy := &models.Badge{
		ID: 2, Key: "veteran", Name: "Veteran",
		Category: models.ModuleContent, Type: models.BadgeTypeActivity, IsActive: true,
		Criteria: &models.Criteria{Type: models.CriterionReputationPoints, Target: 1},
	}
	user := &models.User{ID: 2, Role: "user", ReputationPoints: 50, CreatedAt: time.Now()}
	activity := &mockActivityRepo{err: assert.AnError}

	fx := newBadgeServiceFixture([]*models.Badge{broken, healthy}, []*models.User{user}, activity)

	awarded, err := fx.service.CheckActivityBadges(context.Background(), 2, "")
	require.NoError(t, err, "a failing rule must not abort the sweep")
	require.Len(t, awarded, 1)
	assert.Equal(t, "veteran", awarded[0].Badge.Key)
}

// ===============================
// PIN-SLOT STATE MACHINE
// ===============================

func pinFixtureWithBadges(t *testing.T, count int) (*badgeServiceFixture, []*models.Badge) {
	t.Helper()

	var badges []*models.Badge
	for i := 1; i <= count; i++ {
		badges = append(badges, &models.Badge{
			ID: int64(i), Key: string(rune('a' + i - 1)),
			Name: "Badge", Category: models.ModuleContent,
			Type: models.BadgeTypeActivity, IsActive: true,
		})
	}
	fx := newBadgeServiceFixture(badges, nil, nil)

	for _, b := range badges {
		_, err := fx.service.Award(context.Background(), 1, b.ID, ProvenanceAdminGrant)
		require.NoError(t, err)
	}
	return fx, badges
}

func TestPinBadgeAssignsSequentialSlots(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 3)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		pinned, err := fx.service.PinBadge(ctx, 1, int64(want))
		require.NoError(t, err)
		require.NotNil(t, pinned.PinOrder)
		assert.Equal(t, want, *pinned.PinOrder)
	}
	assert.Len(t, fx.bus.eventsOfType("badge.pinned"), 3)
}

func TestPinBadgeEnforcesCap(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 4)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := fx.service.PinBadge(ctx, 1, i)
		require.NoError(t, err)
	}

	_, err := fx.service.PinBadge(ctx, 1, 4)
	assert.True(t, IsPinLimitExceeded(err), "fourth pin must be rejected")
}

func TestPinBadgeFillsFreedSlot(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 4)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := fx.service.PinBadge(ctx, 1, i)
		require.NoError(t, err)
	}

	// Unpinning slot 2 leaves {1, 3} occupied; the next pin takes slot 2,
	// not a shifted arrangement.
	_, err := fx.service.UnpinBadge(ctx, 1, 2)
	require.NoError(t, err)

	pinned, err := fx.service.PinBadge(ctx, 1, 4)
	require.NoError(t, err)
	require.NotNil(t, pinned.PinOrder)
	assert.Equal(t, 2, *pinned.PinOrder, "lowest free slot is reused")
}

func TestPinBadgeRejectsDoublePin(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 1)
	ctx := context.Background()

	_, err := fx.service.PinBadge(ctx, 1, 1)
	require.NoError(t, err)

	_, err = fx.service.PinBadge(ctx, 1, 1)
	assert.True(t, IsAlreadyPinned(err))
}

func TestPinBadgeRetriesSlotConflict(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 1)

	// The first attempt loses the slot race; the retry succeeds.
	fx.userBadges.pinErr = repositories.ErrPinSlotConflict
	fx.userBadges.pinErrFor = 1

	pinned, err := fx.service.PinBadge(context.Background(), 1, 1)
	require.NoError(t, err, "a transient slot conflict should be retried")
	require.NotNil(t, pinned.PinOrder)
	assert.Equal(t, 1, *pinned.PinOrder)
}

func TestUnpinBadgeNotPinned(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 1)

	_, err := fx.service.UnpinBadge(context.Background(), 1, 1)
	assert.True(t, IsNotPinned(err))
}

func TestPinBadgeNotEarned(t *testing.T) {
	fx := newBadgeServiceFixture(nil, nil, nil)

	_, err := fx.service.PinBadge(context.Background(), 1, 42)
	assert.True(t, IsNotFoundError(err))
}

// ===============================
// VISIBILITY
// ===============================

func TestToggleVisibilityKeepsPinState(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 1)
	ctx := context.Background()

	_, err := fx.service.PinBadge(ctx, 1, 1)
	require.NoError(t, err)

	// Hiding a pinned badge hides it from the profile but leaves the pin.
	award, err := fx.service.ToggleVisibility(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, award.IsVisible)
	assert.True(t, award.IsPinned, "visibility and pin state are independent")

	award, err = fx.service.ToggleVisibility(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, award.IsVisible)
}

// ===============================
// CACHED READS
// ===============================

func TestGetPinnedBadgesDecodesSerializedCacheHit(t *testing.T) {
	fx, _ := pinFixtureWithBadges(t, 1)
	ctx := context.Background()

	pinned, err := fx.service.PinBadge(ctx, 1, 1)
	require.NoError(t, err)

	// The Redis provider hands hits back as raw JSON rather than the stored
	// struct; the read path must decode them instead of falling through.
	raw, err := json.Marshal([]*models.UserBadge{pinned})
	require.NoError(t, err)
	require.NoError(t, fx.cache.Set(ctx, fmt.Sprintf("badges:pinned:%d", int64(1)), raw, time.Minute))

	reads := fx.userBadges.getPinnedCalls
	got, err := fx.service.GetPinnedBadges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].BadgeID)
	require.NotNil(t, got[0].PinOrder)
	assert.Equal(t, 1, *got[0].PinOrder)
	assert.Equal(t, reads, fx.userBadges.getPinnedCalls,
		"a serialized hit is served from cache, not storage")
}

// ===============================
// ADMINISTRATIVE REMOVAL
// ===============================

func TestRemoveAwardAllowsReAward(t *testing.T) {
	badge := &models.Badge{
		ID: 1, Key: "badge", Name: "Badge",
		Category: models.ModuleContent, Type: models.BadgeTypeActivity, IsActive: true,
	}
	fx := newBadgeServiceFixture([]*models.Badge{badge}, nil, nil)
	ctx := context.Background()

	_, err := fx.service.Award(ctx, 1, 1, ProvenanceAdminGrant)
	require.NoError(t, err)

	require.NoError(t, fx.service.RemoveAward(ctx, 1, 1))

	awarded, err := fx.service.Award(ctx, 1, 1, ProvenanceAdminGrant)
	require.NoError(t, err)
	assert.True(t, awarded, "removal clears the way for a fresh award")
}
