// Package scorer implements the multi-stage identity-trust scoring pipeline:
// data quality, source trustworthiness, consortium reputation, raw trust,
// confidence and the final Digital Identity Score.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/config"
)

var (
	reputationKeys = []string{"wdyk", "wwdb", "cf"}
	confidenceKeys = []string{"wdq", "wst"}
)

// DefaultTrustConfig returns a config.TrustConfig holding DefaultWeights.
func DefaultTrustConfig() config.TrustConfig {
	return TrustConfigFromWeights(DefaultWeights())
}

// TrustConfigFromWeights renders w in the config's keyed form.
func TrustConfigFromWeights(w Weights) config.TrustConfig {
	return config.TrustConfig{
		DataQualityWeights: toMap(DataQualityDimensions, w.DataQuality.values()),
		SourceTrustWeights: toMap(SourceTrustDimensions, w.SourceTrust.values()),
		RawTrustWeights:    toMap(RawTrustFactors, w.RawTrust.values()),
		ReputationWeights: toMap(reputationKeys, []float64{
			w.Reputation.WDYK, w.Reputation.WWDB, w.Reputation.CF,
		}),
		ConfidenceWeights:    toMap(confidenceKeys, []float64{w.Confidence.WDQ, w.Confidence.WST}),
		MaxCS:                w.MaxCS,
		InitialTrustEstimate: w.InitialTrustEstimate,
		RandomizeConfidence:  w.RandomizeConfidence,
		ConfidenceMin:        w.ConfidenceMin,
		ConfidenceMax:        w.ConfidenceMax,
	}
}

// WeightSum returns the sum of a keyed weight vector.
func WeightSum(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}

// ValidateConfig checks that a TrustConfig is internally consistent. An
// all-zero vector is accepted; the stage falls back to its defaults.
func ValidateConfig(c config.TrustConfig) error {
	var errs []string

	checkVector := func(section string, names []string, weights map[string]float64, allowNegative ...string) {
		known := make(map[string]bool, len(names))
		for _, n := range names {
			known[n] = true
		}
		keys := make([]string, 0, len(weights))
		for k := range weights {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w := weights[k]
			switch {
			case !known[k]:
				errs = append(errs, fmt.Sprintf("%s: unknown key %q", section, k))
			case math.IsNaN(w) || math.IsInf(w, 0):
				errs = append(errs, fmt.Sprintf("%s.%s must be finite", section, k))
			case w < 0 && !contains(allowNegative, k):
				errs = append(errs, fmt.Sprintf("%s.%s must be >= 0", section, k))
			}
		}
	}

	checkVector("data_quality_weights", DataQualityDimensions, c.DataQualityWeights)
	checkVector("source_trust_weights", SourceTrustDimensions, c.SourceTrustWeights)
	checkVector("raw_trust_weights", RawTrustFactors, c.RawTrustWeights)
	checkVector("reputation_weights", reputationKeys, c.ReputationWeights, "cf")
	checkVector("confidence_weights", confidenceKeys, c.ConfidenceWeights)

	if c.MaxCS < 0 {
		errs = append(errs, "max_cs must be >= 0")
	}
	if c.InitialTrustEstimate < 0 || c.InitialTrustEstimate > 100 {
		errs = append(errs, "initial_trust_estimate must be between 0 and 100")
	}
	if c.RandomizeConfidence {
		if c.ConfidenceMin < 0 || c.ConfidenceMin > 1 || c.ConfidenceMax < 0 || c.ConfidenceMax > 1 {
			errs = append(errs, "confidence_min and confidence_max must be between 0 and 1")
		}
		if c.ConfidenceMax < c.ConfidenceMin {
			errs = append(errs, "confidence_max must be >= confidence_min")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WeightsFromConfig validates c and converts it to pipeline Weights. An
// absent vector keeps its default; keys missing from a present vector
// weigh 0.
func WeightsFromConfig(c config.TrustConfig) (Weights, error) {
	if err := ValidateConfig(c); err != nil {
		return Weights{}, err
	}

	w := DefaultWeights()
	if v, ok := fromMap(DataQualityDimensions, c.DataQualityWeights); ok {
		w.DataQuality = DataQualityWeights{
			Completeness: v[0], Consistency: v[1], Validity: v[2], Accuracy: v[3],
			Timeliness: v[4], Uniqueness: v[5], Precision: v[6], Usability: v[7],
		}
	}
	if v, ok := fromMap(SourceTrustDimensions, c.SourceTrustWeights); ok {
		w.SourceTrust = SourceTrustworthinessWeights{
			Security: v[0], Privacy: v[1], Ethics: v[2], Resiliency: v[3], Robustness: v[4],
			Reliability: v[5], Reputation: v[6], Transparency: v[7], UpdateFrequency: v[8],
		}
	}
	if v, ok := fromMap(RawTrustFactors, c.RawTrustWeights); ok {
		w.RawTrust = RawTrustWeights{
			WIVH: v[0], WABD: v[1], WDIT: v[2], WRIE: v[3], WIVSD: v[4], WRep: v[5], WBeh: v[6],
		}
	}
	if v, ok := fromMap(reputationKeys, c.ReputationWeights); ok {
		w.Reputation = ReputationWeights{WDYK: v[0], WWDB: v[1], CF: v[2]}
	}
	if v, ok := fromMap(confidenceKeys, c.ConfidenceWeights); ok {
		w.Confidence = ConfidenceWeights{WDQ: v[0], WST: v[1]}
	}

	w.MaxCS = c.MaxCS
	w.InitialTrustEstimate = c.InitialTrustEstimate
	w.RandomizeConfidence = c.RandomizeConfidence
	if c.RandomizeConfidence {
		w.ConfidenceMin = c.ConfidenceMin
		w.ConfidenceMax = c.ConfidenceMax
	}
	return w, nil
}

func toMap(names []string, values []float64) map[string]float64 {
	m := make(map[string]float64, len(names))
	for i, n := range names {
		m[n] = values[i]
	}
	return m
}

func fromMap(names []string, m map[string]float64) ([]float64, bool) {
	if len(m) == 0 {
		return nil, false
	}
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = m[n]
	}
	return out, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
