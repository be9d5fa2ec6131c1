package hlc

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Timestamp
		want int
	}{
		{"counter decides", New(900, 1, 3), New(100, 2, 0), -1},
		{"counter decides reverse", New(100, 5, 0), New(900, 4, 3), 1},
		{"causal id breaks counter tie", New(900, 2, 1), New(100, 2, 2), -1},
		{"physical time breaks remaining tie", New(100, 2, 1), New(200, 2, 1), -1},
		{"equal", New(100, 2, 1), New(100, 2, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
			assert.Equal(t, tt.want < 0, tt.a.Less(tt.b))
		})
	}
}

func TestTimestamp_LessIsStrict(t *testing.T) {
	ts := New(5, 5, 5)
	assert.False(t, ts.Less(ts))
}

func TestTimestamp_TotalOrderSort(t *testing.T) {
	stamps := []Timestamp{
		New(3, 2, 0),
		New(1, 1, 2),
		New(2, 1, 2),
		New(9, 1, 0),
		New(0, 0, 7),
	}
	slices.SortFunc(stamps, Timestamp.Compare)

	require.Equal(t, []Timestamp{
		New(0, 0, 7),
		New(9, 1, 0),
		New(1, 1, 2),
		New(2, 1, 2),
		New(3, 2, 0),
	}, stamps)
}

func TestTimestamp_Transitivity(t *testing.T) {
	a, b, c := New(0, 1, 0), New(0, 1, 1), New(0, 2, 0)
	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	assert.True(t, a.Less(c))
}

func TestTimestamp_CounterDistance(t *testing.T) {
	assert.Equal(t, uint64(10), New(0, 3, 0).CounterDistance(New(99, 13, 1)))
	assert.Equal(t, uint64(10), New(99, 13, 1).CounterDistance(New(0, 3, 0)))
	assert.Equal(t, uint64(0), New(1, 4, 0).CounterDistance(New(2, 4, 9)))
}

func TestTimestamp_CounterDistanceExtremes(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want uint64
	}{
		{"max and minus one", math.MaxInt64, -1, uint64(math.MaxInt64) + 1},
		{"min and max", math.MinInt64, math.MaxInt64, math.MaxUint64},
		{"min and zero", math.MinInt64, 0, uint64(math.MaxInt64) + 1},
		{"both min", math.MinInt64, math.MinInt64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(0, tt.a, 0).CounterDistance(New(0, tt.b, 1)))
			assert.Equal(t, tt.want, New(0, tt.b, 1).CounterDistance(New(0, tt.a, 0)))
		})
	}
}
