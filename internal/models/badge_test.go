// file: internal/models/badge_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriteriaCompareOperators(t *testing.T) {
	cases := []struct {
		name     string
		operator string
		value    int64
		target   int64
		want     bool
	}{
		{"gte equal", OpGTE, 10, 10, true},
		{"gte below", OpGTE, 9, 10, false},
		{"gt equal", OpGT, 10, 10, false},
		{"gt above", OpGT, 11, 10, true},
		{"lte equal", OpLTE, 10, 10, true},
		{"lte above", OpLTE, 11, 10, false},
		{"lt equal", OpLT, 10, 10, false},
		{"lt below", OpLT, 9, 10, true},
		{"eq equal", OpEQ, 10, 10, true},
		{"eq above", OpEQ, 11, 10, false},
		{"unknown operator never matches", "between", 10, 10, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Criteria{Target: tc.target, Operator: tc.operator}
			assert.Equal(t, tc.want, c.Compare(tc.value))
		})
	}
}

func TestCriteriaEffectiveOperatorDefaultsToGTE(t *testing.T) {
	c := &Criteria{Target: 5}
	assert.Equal(t, OpGTE, c.EffectiveOperator())
	assert.True(t, c.Compare(5))
	assert.False(t, c.Compare(4))
}

func TestCriterionTypeIsKnown(t *testing.T) {
	assert.True(t, CriterionLikeCount.IsKnown())
	assert.True(t, CriterionEarlyAdopter.IsKnown())
	assert.False(t, CriterionType("social_graph_distance").IsKnown())
	assert.False(t, CriterionType("").IsKnown())
}

func TestRoleListContains(t *testing.T) {
	roles := RoleList{"moderator", "admin"}
	assert.True(t, roles.Contains("admin"))
	assert.False(t, roles.Contains("mentor"))
	assert.False(t, RoleList(nil).Contains("admin"))
}

func TestCriteriaScanRoundTrip(t *testing.T) {
	original := &Criteria{
		Type:           CriterionLikeCount,
		Target:         100,
		Operator:       OpGTE,
		Module:         ModuleContent,
		SingleInstance: true,
	}

	value, err := original.Value()
	assert.NoError(t, err)

	var scanned Criteria
	assert.NoError(t, scanned.Scan(value))
	assert.Equal(t, *original, scanned)
}
