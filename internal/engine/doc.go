// Package engine implements BAP-DD: drift-weighted opinion reconciliation for
// a fixed set of granules.
//
// The engine holds three pieces of state:
//   - an N×N drift matrix, drift[i][j] being how far granule j has drifted as
//     perceived by granule i,
//   - a weight vector derived from the drift matrix,
//   - a static priority map used for partition resolution.
//
// ROUND UPDATE:
//
// UpdateDrift is the only mutating operation. For every ordered pair (i, j):
//
//	diff         = |opinion[i] - opinion[j]|
//	causal_diff  = |ts[i].LogicalCounter - ts[j].LogicalCounter|
//	contribution = diff * (1 + 0.1*causal_diff)
//	drift[i][j]  = alpha*drift[i][j] + (1-alpha)*contribution
//
// then every weight is recomputed from its column:
//
//	weight[j] = 1 / (1 + beta * Σ_{i≠j} drift[i][j])
//
// Matrix update and weight derivation form one critical section. Readers
// never see the matrix from round r paired with weights from round r-1.
//
// READS:
//
// ConsensusOpinion is the weighted mean of the supplied opinions under the
// current weights. ResolvePartition elects a priest by two-level minimum rank
// and never touches drift or weights.
//
// ERRORS:
//
// Every precondition violation returns an *InputError and leaves the engine
// untouched. There is no partial update.
package engine
