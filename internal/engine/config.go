package engine

import (
	"math"
	"slices"
)

// Defaults carried over from the reference prototype.
const (
	DefaultGranules = 4
	DefaultAlpha    = 0.95
	DefaultBeta     = 10.0
)

// PriorityMap maps a granule id to its rank. Lower rank means higher authority.
// Ranks need not be unique.
type PriorityMap map[int]int

// DefaultPriority ranks granule i as i+1.
func DefaultPriority(n int) PriorityMap {
	p := make(PriorityMap, n)
	for i := 0; i < n; i++ {
		p[i] = i + 1
	}
	return p
}

// Rank returns the rank of granule id and whether it has one.
func (p PriorityMap) Rank(id int) (int, bool) {
	r, ok := p[id]
	return r, ok
}

// Clone returns an independent copy.
func (p PriorityMap) Clone() PriorityMap {
	out := make(PriorityMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// IDs returns the ranked granule ids in ascending order.
func (p PriorityMap) IDs() []int {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Config fully determines a new Engine.
type Config struct {
	// GranuleCount is N, fixed for the engine's lifetime. Must be >= 1.
	GranuleCount int `json:"granules"`

	// Alpha is the fraction of prior drift retained each round, in (0, 1].
	Alpha float64 `json:"alpha"`

	// Beta is the sensitivity of weight to accumulated drift, >= 0.
	Beta float64 `json:"beta"`

	// Priority ranks every granule 0..N-1.
	Priority PriorityMap `json:"priority"`
}

// DefaultConfig returns a config for n granules with alpha 0.95, beta 10 and
// distinct ranks 1..n.
func DefaultConfig(n int) Config {
	return Config{
		GranuleCount: n,
		Alpha:        DefaultAlpha,
		Beta:         DefaultBeta,
		Priority:     DefaultPriority(n),
	}
}

// Validate checks every construction-time invariant.
func (c Config) Validate() error {
	if c.GranuleCount < 1 {
		return newConfigError("granule count must be >= 1, got %d", c.GranuleCount)
	}
	if math.IsNaN(c.Alpha) || c.Alpha <= 0 || c.Alpha > 1 {
		return newConfigError("alpha must be in (0, 1], got %v", c.Alpha)
	}
	if math.IsNaN(c.Beta) || math.IsInf(c.Beta, 0) || c.Beta < 0 {
		return newConfigError("beta must be a finite value >= 0, got %v", c.Beta)
	}
	for id, rank := range c.Priority {
		if id < 0 || id >= c.GranuleCount {
			return newConfigError("priority map ranks granule %d outside 0..%d", id, c.GranuleCount-1)
		}
		if rank < 1 {
			return newConfigError("priority rank for granule %d must be >= 1, got %d", id, rank)
		}
	}
	for id := 0; id < c.GranuleCount; id++ {
		if _, ok := c.Priority[id]; !ok {
			return newConfigError("priority map has no rank for granule %d", id)
		}
	}
	return nil
}
