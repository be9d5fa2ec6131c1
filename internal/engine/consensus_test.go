package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsensusOpinion_FreshEngineIsMean(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(4))

	got, err := e.ConsensusOpinion([]float64{70, 77, 70, 70})
	require.NoError(t, err)
	assert.InDelta(t, 71.75, got, 1e-12)
}

func TestConsensusOpinion_DiscountsDriftingGranule(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(4))
	opinions := []float64{70, 77, 70, 70}
	for r := int64(1); r <= 50; r++ {
		require.NoError(t, e.UpdateDrift(opinions, stamps(r, r, r, r)))
	}

	got, err := e.ConsensusOpinion(opinions)
	require.NoError(t, err)
	// Granule 1 keeps roughly a third of an honest granule's weight.
	assert.Less(t, got, 71.0)
	assert.Greater(t, got, 70.0)
}

func TestConsensusOpinion_UsesStoredWeightsNotInputs(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(2))
	require.NoError(t, e.UpdateDrift([]float64{0, 10}, stamps(1, 1)))
	before := e.Snapshot()

	got, err := e.ConsensusOpinion([]float64{4, 4})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12)
	assert.Equal(t, before, e.Snapshot(), "consensus must not mutate state")
}

func TestConsensusOpinion_Convexity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := newTestEngine(t, DefaultConfig(5))

	for r := 0; r < 200; r++ {
		opinions := make([]float64, 5)
		for i := range opinions {
			opinions[i] = rng.NormFloat64() * 100
		}
		counters := []int64{int64(r), int64(r + rng.Intn(5)), int64(r), int64(rng.Intn(50)), int64(r)}
		require.NoError(t, e.UpdateDrift(opinions, stamps(counters...)))

		got, err := e.ConsensusOpinion(opinions)
		require.NoError(t, err)

		lo, hi := opinions[0], opinions[0]
		for _, o := range opinions {
			lo, hi = min(lo, o), max(hi, o)
		}
		assert.GreaterOrEqual(t, got, lo)
		assert.LessOrEqual(t, got, hi)
	}
}

func TestWeightedMean_HandComputed(t *testing.T) {
	tests := []struct {
		name     string
		opinions []float64
		weights  []float64
		want     float64
	}{
		// (0.5*10 + 0.25*20 + 0.25*40) / 1.0
		{"normalized", []float64{10, 20, 40}, []float64{0.5, 0.25, 0.25}, 20},
		// (1*2 + 3*6) / 4
		{"unnormalized", []float64{2, 6}, []float64{1, 3}, 5},
		// (0.1*100 + 0.4*0 + 0.5*(-20)) / 1.0
		{"mixed signs", []float64{100, 0, -20}, []float64{0.1, 0.4, 0.5}, 0},
		{"zero weights", []float64{1, 2, 6}, []float64{0, 0, 0}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, weightedMean(tt.opinions, tt.weights), 1e-12)
		})
	}
}

func TestWeightedMean_LargeOpinionsStayFinite(t *testing.T) {
	got := weightedMean([]float64{math.MaxFloat64, math.MaxFloat64}, []float64{1, 1})
	assert.False(t, math.IsInf(got, 0))
	assert.InEpsilon(t, math.MaxFloat64, got, 1e-12)
}

func TestConsensusOpinion_MatchesWeightedMeanOfStoredWeights(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(3))
	require.NoError(t, e.UpdateDrift([]float64{10, 10, 40}, stamps(1, 1, 3)))

	w := e.Weights()
	require.Less(t, w[2], w[0])
	opinions := []float64{10, 20, 40}
	want := (w[0]*10 + w[1]*20 + w[2]*40) / (w[0] + w[1] + w[2])

	got, err := e.ConsensusOpinion(opinions)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
	assert.InDelta(t, want, weightedMean(opinions, w), 1e-9)
}

func TestConsensusOpinion_UniformInputReturnsThatValue(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(3))
	require.NoError(t, e.UpdateDrift([]float64{1, 50, 99}, stamps(1, 2, 3)))

	got, err := e.ConsensusOpinion([]float64{0.1, 0.1, 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.1, got)
}

func TestConsensusOpinion_ZeroWeightFallsBackToMean(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(3))
	e.weights = []float64{0, 0, 0}

	got, err := e.ConsensusOpinion([]float64{1, 2, 6})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-12)
}

func TestConsensusOpinion_RejectsBadInput(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(3))

	_, err := e.ConsensusOpinion([]float64{1, 2})
	assert.True(t, HasCode(err, ErrCodeLengthMismatch))

	_, err = e.ConsensusOpinion(nil)
	assert.True(t, HasCode(err, ErrCodeLengthMismatch))
}
