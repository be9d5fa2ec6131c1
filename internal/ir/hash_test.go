package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bapdd/internal/hlc"
)

func sampleRound() RoundRecord {
	return RoundRecord{
		RunID:      "run-1",
		Seq:        3,
		Round:      1,
		Opinions:   []float64{70, 77},
		Timestamps: []hlc.Timestamp{hlc.New(0, 1, 0), hlc.New(0, 1, 1)},
		Weights:    []float64{0.7407407407407407, 0.7407407407407407},
		Drift:      [][]float64{{0, 0.35}, {0.35, 0}},
		Consensus:  73.5,
	}
}

func TestRoundHash_Deterministic(t *testing.T) {
	h1, err := RoundHash(sampleRound())
	require.NoError(t, err)
	h2, err := RoundHash(sampleRound())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestRoundHash_IgnoresRunAndSeq(t *testing.T) {
	a := sampleRound()
	b := sampleRound()
	b.RunID = "replay-run"
	b.Seq = 99

	assert.Equal(t, MustRoundHash(a), MustRoundHash(b))
}

func TestRoundHash_SensitiveToState(t *testing.T) {
	base := MustRoundHash(sampleRound())

	tests := []struct {
		name   string
		mutate func(*RoundRecord)
	}{
		{"opinion", func(r *RoundRecord) { r.Opinions[1] = 77.00000000000001 }},
		{"timestamp counter", func(r *RoundRecord) { r.Timestamps[0] = hlc.New(0, 2, 0) }},
		{"timestamp physical", func(r *RoundRecord) { r.Timestamps[0] = hlc.New(5, 1, 0) }},
		{"weight", func(r *RoundRecord) { r.Weights[0] = math.Nextafter(r.Weights[0], 1) }},
		{"drift", func(r *RoundRecord) { r.Drift[0][1] = 0.36 }},
		{"consensus", func(r *RoundRecord) { r.Consensus = 73 }},
		{"round", func(r *RoundRecord) { r.Round = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRound()
			tt.mutate(&r)
			assert.NotEqual(t, base, MustRoundHash(r))
		})
	}
}

func TestElectionHash(t *testing.T) {
	e := ElectionRecord{Subgroups: [][]int{{0, 1}, {2, 3}}, Leaders: []int{0, 2}, Winner: 0}
	h1, err := ElectionHash(e)
	require.NoError(t, err)

	e.Winner = 2
	h2, err := ElectionHash(e)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainRound, data), hashWithDomain(DomainElection, data))
}
