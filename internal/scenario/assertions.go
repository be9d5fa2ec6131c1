package scenario

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/bapdd/internal/engine"
)

// State is what assertions are evaluated against.
type State struct {
	Engine *engine.Engine

	// Consensus of the last applied round, nil if no round applied.
	Consensus *float64
}

// AssertionError is returned when an assertion fails.
// It includes the final weights to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Weights  []float64 // Final weights for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Weights) > 0 {
		fmt.Fprintf(&buf, "\nFinal weights:\n")
		for i, w := range e.Weights {
			fmt.Fprintf(&buf, "  [%d] %.6f\n", i, w)
		}
	}

	return buf.String()
}

// inRange reports whether v lies in [min, max]; a nil bound is open.
func inRange(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func describeRange(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("in [%v, %v]", *lo, *hi)
	case lo != nil:
		return fmt.Sprintf(">= %v", *lo)
	default:
		return fmt.Sprintf("<= %v", *hi)
	}
}

func checkGranule(n, g int, what string) error {
	if g < 0 || g >= n {
		return fmt.Errorf("%s: granule %d outside 0..%d", what, g, n-1)
	}
	return nil
}

// assertWeightRange checks one granule's final weight against bounds.
func assertWeightRange(st *State, a Assertion) error {
	weights := st.Engine.Weights()
	g := *a.Granule
	if err := checkGranule(len(weights), g, AssertWeightRange); err != nil {
		return err
	}
	if !inRange(weights[g], a.Min, a.Max) {
		return &AssertionError{
			Type:     AssertWeightRange,
			Expected: fmt.Sprintf("weight[%d] %s", g, describeRange(a.Min, a.Max)),
			Actual:   fmt.Sprintf("weight[%d] = %v", g, weights[g]),
			Weights:  weights,
		}
	}
	return nil
}

// assertWeightOrder checks that weights strictly decrease along the order.
func assertWeightOrder(st *State, a Assertion) error {
	weights := st.Engine.Weights()
	for _, g := range a.Order {
		if err := checkGranule(len(weights), g, AssertWeightOrder); err != nil {
			return err
		}
	}
	for k := 1; k < len(a.Order); k++ {
		prev, curr := a.Order[k-1], a.Order[k]
		if weights[prev] <= weights[curr] {
			return &AssertionError{
				Type:     AssertWeightOrder,
				Expected: fmt.Sprintf("weights strictly decreasing along %v", a.Order),
				Actual: fmt.Sprintf("weight[%d] = %v is not above weight[%d] = %v",
					prev, weights[prev], curr, weights[curr]),
				Weights: weights,
			}
		}
	}
	return nil
}

// assertConsensusRange checks the consensus of the last applied round.
func assertConsensusRange(st *State, a Assertion) error {
	if st.Consensus == nil {
		return &AssertionError{
			Type:     AssertConsensusRange,
			Expected: fmt.Sprintf("consensus %s", describeRange(a.Min, a.Max)),
			Actual:   "no round was applied",
		}
	}
	if !inRange(*st.Consensus, a.Min, a.Max) {
		return &AssertionError{
			Type:     AssertConsensusRange,
			Expected: fmt.Sprintf("consensus %s", describeRange(a.Min, a.Max)),
			Actual:   fmt.Sprintf("consensus = %v", *st.Consensus),
			Weights:  st.Engine.Weights(),
		}
	}
	return nil
}

// assertDiagonalZero checks that no granule has drifted from itself.
func assertDiagonalZero(st *State) error {
	drift := st.Engine.DriftMatrix()
	for i := range drift {
		if drift[i][i] != 0 {
			return &AssertionError{
				Type:     AssertDiagonalZero,
				Expected: "drift[i][i] = 0 for every granule",
				Actual:   fmt.Sprintf("drift[%d][%d] = %v", i, i, drift[i][i]),
			}
		}
	}
	return nil
}

// assertDriftRange checks one drift matrix entry against bounds.
func assertDriftRange(st *State, a Assertion) error {
	drift := st.Engine.DriftMatrix()
	row, col := *a.Row, *a.Col
	if err := checkGranule(len(drift), row, AssertDriftRange); err != nil {
		return err
	}
	if err := checkGranule(len(drift), col, AssertDriftRange); err != nil {
		return err
	}
	v := drift[row][col]
	if math.IsNaN(v) || !inRange(v, a.Min, a.Max) {
		return &AssertionError{
			Type:     AssertDriftRange,
			Expected: fmt.Sprintf("drift[%d][%d] %s", row, col, describeRange(a.Min, a.Max)),
			Actual:   fmt.Sprintf("drift[%d][%d] = %v", row, col, v),
		}
	}
	return nil
}

// assertWinner resolves the partition on the final engine. The resolution is
// not recorded.
func assertWinner(st *State, a Assertion) error {
	got, err := st.Engine.ResolvePartition(a.Subgroups)
	if err != nil {
		return &AssertionError{
			Type:     AssertWinner,
			Expected: fmt.Sprintf("granule %d elected from %v", *a.Winner, a.Subgroups),
			Actual:   fmt.Sprintf("resolution failed: %v", err),
		}
	}
	if got != *a.Winner {
		return &AssertionError{
			Type:     AssertWinner,
			Expected: fmt.Sprintf("granule %d elected from %v", *a.Winner, a.Subgroups),
			Actual:   fmt.Sprintf("granule %d elected", got),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the final state.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(st *State, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertWeightRange:
			err = assertWeightRange(st, assertion)
		case AssertWeightOrder:
			err = assertWeightOrder(st, assertion)
		case AssertConsensusRange:
			err = assertConsensusRange(st, assertion)
		case AssertDiagonalZero:
			err = assertDiagonalZero(st)
		case AssertDriftRange:
			err = assertDriftRange(st, assertion)
		case AssertWinner:
			err = assertWinner(st, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
