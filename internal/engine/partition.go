package engine

import (
	"fmt"
)

// GroupLeaders returns the leader of each subgroup, in subgroup order.
//
// A group's leader is its member with the numerically smallest rank. When
// several members share that rank the first one in the group's order wins.
func (e *Engine) GroupLeaders(subgroups [][]int) ([]int, error) {
	if len(subgroups) == 0 {
		return nil, &InputError{
			Code:    ErrCodeNoGroups,
			Message: "partition has no subgroups",
		}
	}

	leaders := make([]int, len(subgroups))
	for g, group := range subgroups {
		if len(group) == 0 {
			return nil, &InputError{
				Code:    ErrCodeEmptyGroup,
				Message: fmt.Sprintf("subgroup %d is empty", g),
				Details: map[string]string{"group": fmt.Sprintf("%d", g)},
			}
		}
		leader, err := e.minRank(group)
		if err != nil {
			return nil, err
		}
		leaders[g] = leader
	}
	return leaders, nil
}

// ResolvePartition elects the priest for a partitioned network: the
// minimum-rank leader among the per-group minimum-rank leaders, with
// first-encountered ties at both levels.
//
// Empty groups and ids without a rank are rejected. The drift matrix and
// weights are never read.
func (e *Engine) ResolvePartition(subgroups [][]int) (int, error) {
	leaders, err := e.GroupLeaders(subgroups)
	if err != nil {
		return 0, err
	}
	return e.minRank(leaders)
}

// Rank returns the static rank of granule id.
func (e *Engine) Rank(id int) (int, bool) {
	return e.priority.Rank(id)
}

// minRank scans ids in order and keeps the first id holding the smallest rank.
func (e *Engine) minRank(ids []int) (int, error) {
	best, bestRank := 0, 0
	for k, id := range ids {
		rank, ok := e.priority.Rank(id)
		if !ok {
			return 0, &InputError{
				Code:    ErrCodeUnknownGranule,
				Message: fmt.Sprintf("granule %d has no priority rank", id),
				Details: map[string]string{"granule": fmt.Sprintf("%d", id)},
			}
		}
		if k == 0 || rank < bestRank {
			best, bestRank = id, rank
		}
	}
	return best, nil
}
