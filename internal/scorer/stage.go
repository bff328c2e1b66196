package scorer

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/identity-trust/internal/model"
)

// clampScore bounds a dimension score to [0,100]. NaN becomes 0.
func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// clampUnit bounds a factor to [0,1]. NaN becomes 0.
func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// nonNegative floors v at 0 with no upper bound. NaN becomes 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// cleanWeight treats negative, NaN and infinite weights as zero.
func cleanWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// normalize scales weights to sum to 1. It reports false, leaving the
// cleaned weights unscaled, when they sum to zero.
func normalize(weights []float64) ([]float64, bool) {
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = cleanWeight(w)
	}
	sum := floats.Sum(out)
	if sum <= 0 {
		return out, false
	}
	floats.Scale(1/sum, out)
	return out, true
}

// normalizeOr normalizes weights, falling back to the normalized fallback
// vector when weights sum to zero.
func normalizeOr(stage string, weights, fallback []float64) []float64 {
	if norm, ok := normalize(weights); ok {
		return norm
	}
	zap.L().Warn("scorer: all weights are zero, falling back to defaults",
		zap.String("stage", stage),
	)
	norm, _ := normalize(fallback)
	return norm
}

// weightedSum clamps each score to [0,100] and aggregates it with its
// normalized weight. Total is summed from the breakdown entries so the two
// always agree.
func weightedSum(names []string, weights, scores []float64) model.StageResult {
	breakdown := make([]model.BreakdownEntry, len(names))
	contributions := make([]float64, len(names))
	for i, name := range names {
		s := clampScore(scores[i])
		contributions[i] = weights[i] * s
		breakdown[i] = model.BreakdownEntry{
			Name:          name,
			Weight:        weights[i],
			Score:         s,
			WeightedScore: contributions[i],
		}
	}
	return model.StageResult{
		Total:     floats.Sum(contributions),
		Breakdown: breakdown,
	}
}
