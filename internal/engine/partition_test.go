package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePartition_DefaultPriority(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(4))

	leaders, err := e.GroupLeaders([][]int{{0, 1}, {2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, leaders)

	winner, err := e.ResolvePartition([][]int{{0, 1}, {2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 0, winner)
}

func TestResolvePartition_Hierarchical(t *testing.T) {
	cfg := DefaultConfig(6)
	cfg.Priority = PriorityMap{0: 6, 1: 5, 2: 4, 3: 3, 4: 2, 5: 1}
	e := newTestEngine(t, cfg)

	tests := []struct {
		name      string
		subgroups [][]int
		leaders   []int
		winner    int
	}{
		{"two halves", [][]int{{0, 1, 2}, {3, 4, 5}}, []int{2, 5}, 5},
		{"single group", [][]int{{1, 0, 3}}, []int{3}, 3},
		{"singletons", [][]int{{0}, {1}, {2}}, []int{0, 1, 2}, 2},
		{"partial cover", [][]int{{0, 2}, {1}}, []int{2, 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaders, err := e.GroupLeaders(tt.subgroups)
			require.NoError(t, err)
			assert.Equal(t, tt.leaders, leaders)

			winner, err := e.ResolvePartition(tt.subgroups)
			require.NoError(t, err)
			assert.Equal(t, tt.winner, winner)
		})
	}
}

func TestResolvePartition_TiesGoToFirstEncountered(t *testing.T) {
	cfg := DefaultConfig(4)
	cfg.Priority = PriorityMap{0: 2, 1: 1, 2: 1, 3: 1}
	e := newTestEngine(t, cfg)

	leaders, err := e.GroupLeaders([][]int{{0, 2, 1}, {3, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, leaders)

	winner, err := e.ResolvePartition([][]int{{0, 2, 1}, {3, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, winner, "first leader holding the minimum rank wins")

	winner, err = e.ResolvePartition([][]int{{3, 1}, {0, 2, 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, winner, "group order decides between tied leaders")
}

func TestResolvePartition_Deterministic(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(4))
	groups := [][]int{{3, 1}, {2}, {0}}

	first, err := e.ResolvePartition(groups)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, err := e.ResolvePartition(groups)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestResolvePartition_IndependentOfDrift(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(4))
	groups := [][]int{{0, 1}, {2, 3}}
	before, err := e.ResolvePartition(groups)
	require.NoError(t, err)

	// Granule 0 becomes the least trusted; its rank still wins.
	for r := int64(1); r <= 20; r++ {
		require.NoError(t, e.UpdateDrift([]float64{500, 1, 1, 1}, stamps(r, r, r, r)))
	}
	snap := e.Snapshot()

	after, err := e.ResolvePartition(groups)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, snap, e.Snapshot())
}

func TestResolvePartition_RejectsBadInput(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(4))

	tests := []struct {
		name      string
		subgroups [][]int
		code      InputErrorCode
	}{
		{"no groups", nil, ErrCodeNoGroups},
		{"empty list", [][]int{}, ErrCodeNoGroups},
		{"empty group", [][]int{{0}, {}}, ErrCodeEmptyGroup},
		{"unknown id", [][]int{{0, 4}}, ErrCodeUnknownGranule},
		{"negative id", [][]int{{-1}}, ErrCodeUnknownGranule},
		{"unknown id after valid group", [][]int{{0, 1}, {2, 9}}, ErrCodeUnknownGranule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ResolvePartition(tt.subgroups)
			require.Error(t, err)
			assert.True(t, IsInputError(err))
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}
