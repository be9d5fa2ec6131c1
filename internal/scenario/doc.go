// Package scenario runs YAML-described engine scenarios and compares their
// traces against golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  granules: 4
//	  alpha: 0.95
//	  beta: 10
//	  priority: { 0: 1, 1: 2, 2: 3, 3: 4 }
//	rounds:
//	  - opinions: [70, 77, 70, 70]
//	    repeat: 50
//	  - opinions: [1, 2, 3]
//	    counters: [4, 4, 9]
//	  - opinions: [1, 2]
//	    expect_error: LENGTH_MISMATCH
//	elections:
//	  - subgroups: [[0, 1], [2, 3]]
//	    expect_winner: 0
//	assertions:
//	  - type: weight_order
//	    order: [0, 1]
//	  - type: consensus_range
//	    min: 70
//	    max: 71
//
// # Assertion Types
//
//   - weight_range: final weight of a granule lies within bounds
//   - weight_order: final weights strictly decrease along an order
//   - consensus_range: consensus of the last applied round lies within bounds
//   - diagonal_zero: no granule has drifted from itself
//   - drift_range: one drift matrix entry lies within bounds
//   - winner: resolving a partition on the final engine elects a granule
//
// # Deterministic Testing
//
// Every scenario runs against a fresh engine and a fresh in-memory journal,
// with physical time from testutil.DeterministicClock and a fixed run id.
// After the steps, the journal is replayed into another engine and every
// recomputed hash must equal the recorded one.
//
// Traces carry floats as fixed six-decimal strings, so golden files are
// stable across platforms whose last-bit rounding differs.
package scenario
