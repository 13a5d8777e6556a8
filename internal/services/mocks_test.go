// file: internal/services/mocks_test.go
package services

import (
	"alphahub/internal/events"
	"alphahub/internal/models"
	"alphahub/internal/repositories"
	"context"
	"fmt"
	"sync"
	"time"
)

// ===============================
// REPOSITORY MOCKS
// ===============================

type mockBadgeRepo struct {
	badges map[int64]*models.Badge
}

func newMockBadgeRepo(badges ...*models.Badge) *mockBadgeRepo {
	repo := &mockBadgeRepo{badges: make(map[int64]*models.Badge)}
	for _, b := range badges {
		repo.badges[b.ID] = b
	}
	return repo
}

func (m *mockBadgeRepo) GetByID(_ context.Context, id int64) (*models.Badge, error) {
	return m.badges[id], nil
}

func (m *mockBadgeRepo) GetByKey(_ context.Context, key string) (*models.Badge, error) {
	for _, b := range m.badges {
		if b.Key == key {
			return b, nil
		}
	}
	return nil, nil
}

func (m *mockBadgeRepo) GetActiveByTypes(_ context.Context, badgeTypes []string, category string) ([]*models.Badge, error) {
	var out []*models.Badge
	for _, b := range m.badges {
		if !b.IsActive {
			continue
		}
		if category != "" && b.Category != category {
			continue
		}
		for _, t := range badgeTypes {
			if b.Type == t {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (m *mockBadgeRepo) List(_ context.Context, category string, params models.PaginationParams) (*models.PaginatedResponse[*models.Badge], error) {
	var out []*models.Badge
	for _, b := range m.badges {
		if category == "" || b.Category == category {
			out = append(out, b)
		}
	}
	return &models.PaginatedResponse[*models.Badge]{Data: out}, nil
}

type mockUserBadgeRepo struct {
	mu     sync.Mutex
	awards map[string]*models.UserBadge
	nextID int64

	pinErr    error // injected Pin failure, consumed once per call batch
	pinErrFor int   // how many times pinErr fires before succeeding

	getPinnedCalls int
}

func newMockUserBadgeRepo() *mockUserBadgeRepo {
	return &mockUserBadgeRepo{awards: make(map[string]*models.UserBadge)}
}

func awardKey(userID, badgeID int64) string {
	return fmt.Sprintf("%d:%d", userID, badgeID)
}

func (m *mockUserBadgeRepo) Insert(_ context.Context, award *models.UserBadge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := awardKey(award.UserID, award.BadgeID)
	if _, exists := m.awards[key]; exists {
		return false, nil
	}

	m.nextID++
	award.ID = m.nextID
	award.EarnedAt = time.Now()
	award.IsVisible = true
	stored := *award
	m.awards[key] = &stored
	return true, nil
}

func (m *mockUserBadgeRepo) GetByUser(_ context.Context, userID int64, visibleOnly bool) ([]*models.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.UserBadge
	for _, a := range m.awards {
		if a.UserID != userID {
			continue
		}
		if visibleOnly && !a.IsVisible {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockUserBadgeRepo) GetHeldBadgeIDs(_ context.Context, userID int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	held := make(map[int64]bool)
	for _, a := range m.awards {
		if a.UserID == userID {
			held[a.BadgeID] = true
		}
	}
	return held, nil
}

func (m *mockUserBadgeRepo) GetPinned(_ context.Context, userID int64) ([]*models.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getPinnedCalls++

	var out []*models.UserBadge
	for _, a := range m.awards {
		if a.UserID == userID && a.IsPinned {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockUserBadgeRepo) Pin(_ context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pinErr != nil && m.pinErrFor > 0 {
		m.pinErrFor--
		return nil, m.pinErr
	}

	award, exists := m.awards[awardKey(userID, badgeID)]
	if !exists {
		return nil, repositories.ErrAwardNotFound
	}
	if award.IsPinned {
		return nil, repositories.ErrAlreadyPinned
	}

	taken := make(map[int]bool)
	count := 0
	for _, a := range m.awards {
		if a.UserID == userID && a.IsPinned {
			count++
			if a.PinOrder != nil {
				taken[*a.PinOrder] = true
			}
		}
	}
	if count >= models.MaxPinnedBadges {
		return nil, repositories.ErrPinLimitExceeded
	}

	slot := 0
	for candidate := 1; candidate <= models.MaxPinnedBadges; candidate++ {
		if !taken[candidate] {
			slot = candidate
			break
		}
	}

	now := time.Now()
	award.IsPinned = true
	award.PinOrder = &slot
	award.PinnedAt = &now
	return award, nil
}

func (m *mockUserBadgeRepo) Unpin(_ context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	award, exists := m.awards[awardKey(userID, badgeID)]
	if !exists {
		return nil, repositories.ErrAwardNotFound
	}
	if !award.IsPinned {
		return nil, repositories.ErrNotPinned
	}

	award.IsPinned = false
	award.PinOrder = nil
	award.PinnedAt = nil
	return award, nil
}

func (m *mockUserBadgeRepo) ToggleVisibility(_ context.Context, userID, badgeID int64) (*models.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	award, exists := m.awards[awardKey(userID, badgeID)]
	if !exists {
		return nil, repositories.ErrAwardNotFound
	}
	award.IsVisible = !award.IsVisible
	return award, nil
}

func (m *mockUserBadgeRepo) GetStats(_ context.Context, userID int64) (*models.BadgeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &models.BadgeStats{
		ByRarity:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, a := range m.awards {
		if a.UserID == userID && a.IsVisible {
			stats.Total++
		}
	}
	return stats, nil
}

func (m *mockUserBadgeRepo) Delete(_ context.Context, userID, badgeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := awardKey(userID, badgeID)
	if _, exists := m.awards[key]; !exists {
		return repositories.ErrAwardNotFound
	}
	delete(m.awards, key)
	return nil
}

type mockScoringRuleRepo struct {
	rules []*models.EngagementCriteria
}

func (m *mockScoringRuleRepo) GetByID(_ context.Context, id int64) (*models.EngagementCriteria, error) {
	for _, r := range m.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockScoringRuleRepo) GetActiveByKinds(_ context.Context, kinds []string) ([]*models.EngagementCriteria, error) {
	var out []*models.EngagementCriteria
	for _, r := range m.rules {
		if !r.IsActive {
			continue
		}
		for _, k := range kinds {
			if r.Kind == k {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

type mockEngagementRepo struct {
	mu          sync.Mutex
	engagements map[string]*models.Engagement
	nextID      int64

	totalCount    int64
	verifiedCount int64
	ruleCounts    map[int64]int64
	lastForRule   map[int64]time.Time
}

func newMockEngagementRepo() *mockEngagementRepo {
	return &mockEngagementRepo{
		engagements: make(map[string]*models.Engagement),
		ruleCounts:  make(map[int64]int64),
		lastForRule: make(map[int64]time.Time),
	}
}

func engagementKey(userID, postID int64) string {
	return fmt.Sprintf("%d:%d", userID, postID)
}

func (m *mockEngagementRepo) Create(_ context.Context, engagement *models.Engagement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := engagementKey(engagement.UserID, engagement.PostID)
	if _, exists := m.engagements[key]; exists {
		return repositories.ErrDuplicateEngagement
	}

	m.nextID++
	engagement.ID = m.nextID
	engagement.CreatedAt = time.Now()
	stored := *engagement
	m.engagements[key] = &stored
	return nil
}

func (m *mockEngagementRepo) GetByUserAndPost(_ context.Context, userID, postID int64) (*models.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engagements[engagementKey(userID, postID)], nil
}

func (m *mockEngagementRepo) ListByUser(_ context.Context, userID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.Engagement], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Engagement
	for _, e := range m.engagements {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return &models.PaginatedResponse[*models.Engagement]{Data: out}, nil
}

func (m *mockEngagementRepo) CountByUser(_ context.Context, userID int64) (int64, error) {
	return m.totalCount, nil
}

func (m *mockEngagementRepo) VerifiedCounts(_ context.Context, userID int64) (int64, int64, error) {
	return m.verifiedCount, m.totalCount, nil
}

func (m *mockEngagementRepo) CountForRuleSince(_ context.Context, userID, ruleID int64, since time.Time) (int64, error) {
	return m.ruleCounts[ruleID], nil
}

func (m *mockEngagementRepo) LastForRuleAt(_ context.Context, userID, ruleID int64) (*time.Time, error) {
	if last, ok := m.lastForRule[ruleID]; ok {
		return &last, nil
	}
	return nil, nil
}

type mockActivityRepo struct {
	contentCount      int64
	maxPostLikes      int64
	sumPostLikes      int64
	maxPostComments   int64
	sumPostComments   int64
	courseCompletions int64
	ratingCount       int64
	averageRating     float64
	posts             map[int64]*models.PostRef
	activeUserIDs     []int64

	err error // injected failure for every measurement
}

func (m *mockActivityRepo) ContentCount(_ context.Context, _ int64, _, _ string, _ int) (int64, error) {
	return m.contentCount, m.err
}

func (m *mockActivityRepo) MaxPostLikes(_ context.Context, _ int64, _ string, _ int) (int64, error) {
	return m.maxPostLikes, m.err
}

func (m *mockActivityRepo) SumPostLikes(_ context.Context, _ int64, _ string, _ int) (int64, error) {
	return m.sumPostLikes, m.err
}

func (m *mockActivityRepo) MaxPostComments(_ context.Context, _ int64, _ string, _ int) (int64, error) {
	return m.maxPostComments, m.err
}

func (m *mockActivityRepo) SumPostComments(_ context.Context, _ int64, _ string, _ int) (int64, error) {
	return m.sumPostComments, m.err
}

func (m *mockActivityRepo) CourseCompletions(_ context.Context, _ int64) (int64, error) {
	return m.courseCompletions, m.err
}

func (m *mockActivityRepo) RatingCount(_ context.Context, _ int64) (int64, error) {
	return m.ratingCount, m.err
}

func (m *mockActivityRepo) AverageRating(_ context.Context, _ int64) (float64, error) {
	return m.averageRating, m.err
}

func (m *mockActivityRepo) GetPostRef(_ context.Context, postID int64) (*models.PostRef, error) {
	return m.posts[postID], nil
}

func (m *mockActivityRepo) RecentlyActiveUserIDs(_ context.Context, _ time.Time, _ int) ([]int64, error) {
	return m.activeUserIDs, nil
}

type mockUserRepo struct {
	mu            sync.Mutex
	users         map[int64]*models.User
	reputation    map[int64]int
	contributions map[int64]int
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{
		users:         make(map[int64]*models.User),
		reputation:    make(map[int64]int),
		contributions: make(map[int64]int),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) IncrementReputation(_ context.Context, userID int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reputation[userID] += delta
	return nil
}

func (m *mockUserRepo) IncrementContributions(_ context.Context, userID int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contributions[userID] += delta
	return nil
}

// ===============================
// EVENT BUS MOCK
// ===============================

type mockEventBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (m *mockEventBus) Publish(_ context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
	return nil
}

func (m *mockEventBus) PublishAsync(ctx context.Context, event events.Event) error {
	return m.Publish(ctx, event)
}

func (m *mockEventBus) Subscribe(string, events.EventHandler) error { return nil }
func (m *mockEventBus) Unsubscribe(string, string) error           { return nil }
func (m *mockEventBus) Start(context.Context) error                { return nil }
func (m *mockEventBus) Stop(context.Context) error                 { return nil }
func (m *mockEventBus) Stats() *events.EventBusStats               { return &events.EventBusStats{} }

func (m *mockEventBus) eventsOfType(eventType string) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []events.Event
	for _, e := range m.published {
		if e.GetEventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
