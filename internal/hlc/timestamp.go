// Package hlc provides the logical timestamps granules attach to their
// opinions, and the per-granule clocks that produce them.
//
// A Timestamp is a (physical time, logical counter, causal id) triple. The
// total order compares the logical counter first, then the causal id, then
// physical time. Drift scoring only looks at the logical counter; the other
// two components exist for ordering.
package hlc

import (
	"cmp"
	"fmt"
)

// Timestamp is an immutable logical timestamp. Copy it freely; a new value is
// produced for every round instead of mutating an old one.
type Timestamp struct {
	PhysicalTime   int64 `json:"pt"`
	LogicalCounter int64 `json:"l"`
	CausalID       int64 `json:"c"`
}

// New builds a Timestamp.
func New(physical, logical, causal int64) Timestamp {
	return Timestamp{PhysicalTime: physical, LogicalCounter: logical, CausalID: causal}
}

// Compare returns -1, 0 or +1 according to the total order:
//
//	LogicalCounter ascending, then CausalID ascending, then PhysicalTime ascending.
func (t Timestamp) Compare(other Timestamp) int {
	if c := cmp.Compare(t.LogicalCounter, other.LogicalCounter); c != 0 {
		return c
	}
	if c := cmp.Compare(t.CausalID, other.CausalID); c != 0 {
		return c
	}
	return cmp.Compare(t.PhysicalTime, other.PhysicalTime)
}

// Less reports whether t sorts strictly before other.
func (t Timestamp) Less(other Timestamp) bool {
	return t.Compare(other) < 0
}

// CounterDistance is |t.LogicalCounter - other.LogicalCounter|. The result is
// unsigned so the distance between any two int64 counters is exact.
func (t Timestamp) CounterDistance(other Timestamp) uint64 {
	hi, lo := t.LogicalCounter, other.LogicalCounter
	if hi < lo {
		hi, lo = lo, hi
	}
	return uint64(hi) - uint64(lo)
}

func (t Timestamp) String() string {
	return fmt.Sprintf("(l=%d c=%d pt=%d)", t.LogicalCounter, t.CausalID, t.PhysicalTime)
}
