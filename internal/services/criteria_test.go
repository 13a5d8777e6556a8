// file: internal/services/criteria_test.go
package services

import (
	"context"
	"testing"
	"time"

	"alphahub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEvaluator(activity *mockActivityRepo, users *mockUserRepo) *criteriaEvaluator {
	logger := zap.NewNop()
	evaluator := NewCriteriaEvaluator(activity, users, logger).(*criteriaEvaluator)
	return evaluator
}

func TestEvaluateSingleInstanceVersusCumulative(t *testing.T) {
	// Three posts with 10, 60, and 5 likes: max is 60, sum is 75.
	activity := &mockActivityRepo{maxPostLikes: 60, sumPostLikes: 75}
	evaluator := newTestEvaluator(activity, newMockUserRepo())
	ctx := context.Background()

	// A single post with 50 likes exists, so the single-instance rule fires.
	matched, err := evaluator.Evaluate(ctx, 1, &models.Criteria{
		Type:           models.CriterionLikeCount,
		Target:         50,
		SingleInstance: true,
	})
	require.NoError(t, err)
	assert.True(t, matched, "max-over-items 60 should reach single-instance target 50")

	// No single post has 100 likes, even though the sum does not matter here.
	matched, err = evaluator.Evaluate(ctx, 1, &models.Criteria{
		Type:           models.CriterionLikeCount,
		Target:         70,
		SingleInstance: true,
	})
	require.NoError(t, err)
	assert.False(t, matched, "max-over-items 60 should not reach single-instance target 70")

	// The cumulative rule sums across items: 75 total.
	matched, err = evaluator.Evaluate(ctx, 1, &models.Criteria{
		Type:   models.CriterionLikeCount,
		Target: 70,
	})
	require.NoError(t, err)
	assert.True(t, matched, "sum-across-items 75 should reach cumulative target 70")

	matched, err = evaluator.Evaluate(ctx, 1, &models.Criteria{
		Type:   models.CriterionLikeCount,
		Target: 100,
	})
	require.NoError(t, err)
	assert.False(t, matched, "sum-across-items 75 should not reach cumulative target 100")
}

func TestEvaluateOperatorBoundaries(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		operator string
		value    int64
		target   int64
		want     bool
	}{
		{"gte at boundary", models.OpGTE, 10, 10, true},
		{"gte below boundary", models.OpGTE, 9, 10, false},
		{"gt at boundary", models.OpGT, 10, 10, false},
		{"gt above boundary", models.OpGT, 11, 10, true},
		{"lte at boundary", models.OpLTE, 10, 10, true},
		{"lte above boundary", models.OpLTE, 11, 10, false},
		{"lt at boundary", models.OpLT, 10, 10, false},
		{"lt below boundary", models.OpLT, 9, 10, true},
		{"eq matching", models.OpEQ, 10, 10, true},
		{"eq not matching", models.OpEQ, 11, 10, false},
		{"empty operator defaults to gte", "", 10, 10, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			activity := &mockActivityRepo{contentCount: tc.value}
			evaluator := newTestEvaluator(activity, newMockUserRepo())

			matched, err := evaluator.Evaluate(ctx, 1, &models.Criteria{
				Type:     models.CriterionContentCount,
				Target:   tc.target,
				Operator: tc.operator,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, matched)
		})
	}
}

func TestEvaluateAverageRatingTruncatesToWholeStars(t *testing.T) {
	ctx := context.Background()

	// A mean of 3.9 is below a whole-star target of 4; 4.2 reaches it.
	evaluator := newTestEvaluator(&mockActivityRepo{averageRating: 3.9}, newMockUserRepo())
	matched, err := evaluator.Evaluate(ctx, 1, &models.Criteria{
		Type:   models.CriterionAverageRating,
		Target: 4,
	})
	require.NoError(t, err)
	assert.False(t, matched, "mean 3.9 truncates to 3, below target 4")

	evaluator = newTestEvaluator(&mockActivityRepo{averageRating: 4.2}, newMockUserRepo())
	matched, err = evaluator.Evaluate(ctx, 1, &models.Criteria{
		Type:   models.CriterionAverageRating,
		Target: 4,
	})
	require.NoError(t, err)
	assert.True(t, matched, "mean 4.2 truncates to 4, meeting target 4")
}

func TestEvaluateUnknownCriterionType(t *testing.T) {
	evaluator := newTestEvaluator(&mockActivityRepo{}, newMockUserRepo())

	matched, err := evaluator.Evaluate(context.Background(), 1, &models.Criteria{
		Type:   "social_graph_distance",
		Target: 1,
	})

	// Unknown types are treated as non-matching, never as an error.
	assert.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateNilCriteria(t *testing.T) {
	evaluator := newTestEvaluator(&mockActivityRepo{}, newMockUserRepo())

	matched, err := evaluator.Evaluate(context.Background(), 1, nil)
	assert.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateAccountAgeDays(t *testing.T) {
	joined := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	users := newMockUserRepo(&models.User{ID: 7, CreatedAt: joined})

	evaluator := newTestEvaluator(&mockActivityRepo{}, users)
	evaluator.now = func() time.Time {
		return joined.AddDate(0, 0, 30)
	}

	matched, err := evaluator.Evaluate(context.Background(), 7, &models.Criteria{
		Type:   models.CriterionAccountAgeDays,
		Target: 30,
	})
	require.NoError(t, err)
	assert.True(t, matched, "30 whole days since signup should reach target 30")

	evaluator.now = func() time.Time {
		return joined.AddDate(0, 0, 29)
	}
	matched, err = evaluator.Evaluate(context.Background(), 7, &models.Criteria{
		Type:   models.CriterionAccountAgeDays,
		Target: 30,
	})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateRoleLinked(t *testing.T) {
	users := newMockUserRepo(&models.User{ID: 3, Role: "mentor", CreatedAt: time.Now()})
	evaluator := newTestEvaluator(&mockActivityRepo{}, users)
	ctx := context.Background()

	matched, err := evaluator.Evaluate(ctx, 3, &models.Criteria{
		Type:   models.CriterionRoleLinked,
		Target: 1,
		Role:   "mentor",
	})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = evaluator.Evaluate(ctx, 3, &models.Criteria{
		Type:   models.CriterionRoleLinked,
		Target: 1,
		Role:   "designer",
	})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateEarlyAdopter(t *testing.T) {
	evaluator := newTestEvaluator(&mockActivityRepo{}, newMockUserRepo())
	ctx := context.Background()

	// Identifiers are assigned sequentially, so the ID is the signup rank.
	matched, err := evaluator.Evaluate(ctx, 42, &models.Criteria{
		Type:     models.CriterionEarlyAdopter,
		Target:   100,
		Operator: models.OpLTE,
	})
	require.NoError(t, err)
	assert.True(t, matched, "user 42 is within the first 100 signups")

	matched, err = evaluator.Evaluate(ctx, 101, &models.Criteria{
		Type:     models.CriterionEarlyAdopter,
		Target:   100,
		Operator: models.OpLTE,
	})
	require.NoError(t, err)
	assert.False(t, matched)
}
