package scorer

import "math/rand/v2"

// RandomizeConfidenceWeights draws WDQ uniformly from [minWDQ,maxWDQ] and sets
// WST = 1 − WDQ. Bounds are swapped when inverted and clamped to [0,1].
// A nil rng uses the unseeded global source; pass a seeded *rand.Rand for
// reproducible draws.
func RandomizeConfidenceWeights(rng *rand.Rand, minWDQ, maxWDQ float64) ConfidenceWeights {
	lo, hi := clampUnit(minWDQ), clampUnit(maxWDQ)
	if lo > hi {
		lo, hi = hi, lo
	}

	var u float64
	if rng != nil {
		u = rng.Float64()
	} else {
		u = rand.Float64()
	}

	wdq := lo + u*(hi-lo)
	return ConfidenceWeights{WDQ: wdq, WST: 1 - wdq}
}
