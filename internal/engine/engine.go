package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/bapdd/internal/hlc"
)

// CausalAmplification scales opinion divergence by logical-counter divergence:
// contribution = diff * (1 + CausalAmplification*causal_diff).
const CausalAmplification = 0.1

// Engine is one BAP-DD instance.
//
// Thread-safety model:
//   - UpdateDrift: exclusive lock, matrix and weights change together
//   - Weights, DriftMatrix, Snapshot, ConsensusOpinion: shared lock, return copies
//   - ResolvePartition: no lock, reads only the immutable priority map
type Engine struct {
	mu sync.RWMutex

	n        int
	alpha    float64
	beta     float64
	priority PriorityMap // never mutated after New

	drift   *mat.Dense
	weights []float64
	rounds  int64
}

// Snapshot is a consistent copy of the mutable engine state.
type Snapshot struct {
	Round   int64       `json:"round"`
	Weights []float64   `json:"weights"`
	Drift   [][]float64 `json:"drift"`
}

// New validates cfg and returns an engine with a zero drift matrix and all
// weights at 1.0. The priority map is copied.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	weights := make([]float64, cfg.GranuleCount)
	for i := range weights {
		weights[i] = 1.0
	}

	return &Engine{
		n:        cfg.GranuleCount,
		alpha:    cfg.Alpha,
		beta:     cfg.Beta,
		priority: cfg.Priority.Clone(),
		drift:    mat.NewDense(cfg.GranuleCount, cfg.GranuleCount, nil),
		weights:  weights,
	}, nil
}

// GranuleCount returns N.
func (e *Engine) GranuleCount() int { return e.n }

// Config returns the construction parameters. The priority map is a copy.
func (e *Engine) Config() Config {
	return Config{
		GranuleCount: e.n,
		Alpha:        e.alpha,
		Beta:         e.beta,
		Priority:     e.priority.Clone(),
	}
}

// DriftContribution is the per-round drift input for one ordered pair.
func DriftContribution(diff float64, causalDiff uint64) float64 {
	return diff * (1 + CausalAmplification*float64(causalDiff))
}

// UpdateDrift folds one round of opinions and timestamps into the drift
// matrix and recomputes the weight vector.
//
// Both slices must have length N and every opinion must be finite; otherwise
// an *InputError is returned and nothing changes. A round whose contributions,
// drift or weights would leave the float64 range is rejected the same way.
func (e *Engine) UpdateDrift(opinions []float64, timestamps []hlc.Timestamp) error {
	if len(opinions) != e.n {
		return newLengthError("opinions", len(opinions), e.n)
	}
	if len(timestamps) != e.n {
		return newLengthError("timestamps", len(timestamps), e.n)
	}
	if err := checkFinite(opinions); err != nil {
		return err
	}
	contributions, err := pairContributions(opinions, timestamps)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := mat.DenseCopyOf(e.drift)
	for i := 0; i < e.n; i++ {
		row := next.RawRowView(i)
		for j := range row {
			row[j] = e.fold(row[j], contributions[i][j])
		}
	}
	weights, err := deriveWeights(next, e.beta)
	if err != nil {
		return err
	}

	e.drift = next
	e.weights = weights
	e.rounds++

	slog.Debug("drift updated",
		"round", e.rounds,
		"weights", fmt.Sprintf("%.3f", e.weights),
	)
	return nil
}

// fold is the exponential moving average step for one matrix entry. With
// alpha at 1 the contribution is ignored entirely.
func (e *Engine) fold(prev, contribution float64) float64 {
	if e.alpha == 1 {
		return prev
	}
	return e.alpha*prev + (1-e.alpha)*contribution
}

// pairContributions computes DriftContribution for every ordered pair.
func pairContributions(opinions []float64, timestamps []hlc.Timestamp) ([][]float64, error) {
	n := len(opinions)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			diff := math.Abs(opinions[i] - opinions[j])
			c := DriftContribution(diff, timestamps[i].CounterDistance(timestamps[j]))
			if math.IsInf(c, 0) || math.IsNaN(c) {
				return nil, newOverflowError(fmt.Sprintf("drift contribution of granule %d against %d overflows", i, j), i, j)
			}
			out[i][j] = c
		}
	}
	return out, nil
}

// deriveWeights returns weight[j] = 1/(1+beta*sum) where sum is column j of
// drift without the diagonal. Every weight must land in (0, 1].
func deriveWeights(drift *mat.Dense, beta float64) ([]float64, error) {
	n, _ := drift.Dims()
	col := make([]float64, n)
	weights := make([]float64, n)
	for j := 0; j < n; j++ {
		mat.Col(col, j, drift)
		for i, d := range col {
			if math.IsInf(d, 0) || math.IsNaN(d) {
				return nil, newOverflowError(fmt.Sprintf("drift of granule %d against %d overflows", i, j), i, j)
			}
		}
		sum := floats.Sum(col) - col[j]
		w := 1.0 / (1.0 + beta*sum)
		if !(w > 0 && w <= 1) {
			return nil, newOverflowError(fmt.Sprintf("weight of granule %d leaves (0, 1]", j), j, j)
		}
		weights[j] = w
	}
	return weights, nil
}

func newOverflowError(message string, i, j int) *InputError {
	return &InputError{
		Code:    ErrCodeDriftOverflow,
		Message: message,
		Details: map[string]string{
			"row": fmt.Sprintf("%d", i),
			"col": fmt.Sprintf("%d", j),
		},
	}
}

// Weights returns a copy of the current weight vector.
func (e *Engine) Weights() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]float64(nil), e.weights...)
}

// DriftMatrix returns a copy of the drift matrix as rows.
func (e *Engine) DriftMatrix() [][]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.driftRows()
}

// Rounds returns how many successful UpdateDrift calls have been applied.
func (e *Engine) Rounds() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rounds
}

// Snapshot returns weights and drift matrix taken under a single lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Round:   e.rounds,
		Weights: append([]float64(nil), e.weights...),
		Drift:   e.driftRows(),
	}
}

func (e *Engine) driftRows() [][]float64 {
	rows := make([][]float64, e.n)
	for i := range rows {
		rows[i] = append([]float64(nil), e.drift.RawRowView(i)...)
	}
	return rows
}

func checkFinite(opinions []float64) error {
	for i, o := range opinions {
		if math.IsNaN(o) || math.IsInf(o, 0) {
			return &InputError{
				Code:    ErrCodeNonFinite,
				Message: fmt.Sprintf("opinion for granule %d is not finite: %v", i, o),
				Details: map[string]string{"granule": fmt.Sprintf("%d", i)},
			}
		}
	}
	return nil
}
