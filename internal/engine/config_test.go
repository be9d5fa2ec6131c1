package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(4)

	assert.Equal(t, 4, cfg.GranuleCount)
	assert.Equal(t, 0.95, cfg.Alpha)
	assert.Equal(t, 10.0, cfg.Beta)
	assert.Equal(t, PriorityMap{0: 1, 1: 2, 2: 3, 3: 4}, cfg.Priority)
	require.NoError(t, cfg.Validate())
}

func TestPriorityMap(t *testing.T) {
	p := PriorityMap{3: 1, 0: 4, 1: 4}

	assert.Equal(t, []int{0, 1, 3}, p.IDs())

	r, ok := p.Rank(3)
	assert.True(t, ok)
	assert.Equal(t, 1, r)

	_, ok = p.Rank(2)
	assert.False(t, ok)

	c := p.Clone()
	c[3] = 9
	assert.Equal(t, 1, p[3])
}

func TestConfig_DuplicateRanksAllowed(t *testing.T) {
	cfg := Config{GranuleCount: 3, Alpha: 0.5, Beta: 0, Priority: PriorityMap{0: 1, 1: 1, 2: 1}}
	assert.NoError(t, cfg.Validate())
}
