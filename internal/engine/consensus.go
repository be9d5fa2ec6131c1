package engine

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ConsensusOpinion returns the weighted mean of opinions under the engine's
// current weights. Weights are not recomputed from the opinions passed here.
//
// If the weights sum to zero the unweighted mean is returned instead. Under
// the update rule weights are always positive, so this branch is a fallback
// rather than an error path.
//
// The result is clamped to [min(opinions), max(opinions)] so rounding in the
// weighted sum cannot push it outside the convex hull.
func (e *Engine) ConsensusOpinion(opinions []float64) (float64, error) {
	if len(opinions) != e.n {
		return 0, newLengthError("opinions", len(opinions), e.n)
	}
	if err := checkFinite(opinions); err != nil {
		return 0, err
	}

	e.mu.RLock()
	mean := weightedMean(opinions, e.weights)
	e.mu.RUnlock()

	lo, hi := floats.Min(opinions), floats.Max(opinions)
	return min(max(mean, lo), hi), nil
}

// weightedMean is sum(w_i*o_i)/sum(w_i), or the plain mean when the weights
// sum to zero. When the dot product overflows, each weight is normalized
// before it multiplies its opinion.
func weightedMean(opinions, weights []float64) float64 {
	total := floats.Sum(weights)
	if total == 0 {
		weights = make([]float64, len(opinions))
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(opinions))
	}

	if mean := floats.Dot(opinions, weights) / total; !math.IsInf(mean, 0) && !math.IsNaN(mean) {
		return mean
	}
	var mean float64
	for i, o := range opinions {
		mean += o * (weights[i] / total)
	}
	return mean
}
