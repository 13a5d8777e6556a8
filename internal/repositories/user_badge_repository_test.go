// file: internal/repositories/user_badge_repository_test.go
package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowestFreeSlot(t *testing.T) {
	cases := []struct {
		name  string
		taken map[int]bool
		want  int
	}{
		{"no pins", map[int]bool{}, 1},
		{"slot one taken", map[int]bool{1: true}, 2},
		{"gap after unpinning slot two", map[int]bool{1: true, 3: true}, 2},
		{"only slot three free", map[int]bool{1: true, 2: true}, 3},
		{"all slots taken", map[int]bool{1: true, 2: true, 3: true}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lowestFreeSlot(tc.taken))
		})
	}
}
