package scorer

import "github.com/sells-group/identity-trust/internal/model"

// SourceTrustDimensions lists the source trustworthiness dimensions in
// breakdown order.
var SourceTrustDimensions = []string{
	"security", "privacy", "ethics", "resiliency", "robustness",
	"reliability", "reputation", "transparency", "update_frequency",
}

// SourceTrustworthinessMetrics holds the nine trust dimensions of a data
// source, each nominally on a 0-100 scale.
type SourceTrustworthinessMetrics struct {
	Security        float64 `json:"security"`
	Privacy         float64 `json:"privacy"`
	Ethics          float64 `json:"ethics"`
	Resiliency      float64 `json:"resiliency"`
	Robustness      float64 `json:"robustness"`
	Reliability     float64 `json:"reliability"`
	Reputation      float64 `json:"reputation"`
	Transparency    float64 `json:"transparency"`
	UpdateFrequency float64 `json:"update_frequency"`
}

func (m SourceTrustworthinessMetrics) values() []float64 {
	return []float64{
		m.Security, m.Privacy, m.Ethics, m.Resiliency, m.Robustness,
		m.Reliability, m.Reputation, m.Transparency, m.UpdateFrequency,
	}
}

// SourceTrustworthinessWeights is a relative-importance vector over the
// source trust dimensions.
type SourceTrustworthinessWeights struct {
	Security        float64 `json:"security"`
	Privacy         float64 `json:"privacy"`
	Ethics          float64 `json:"ethics"`
	Resiliency      float64 `json:"resiliency"`
	Robustness      float64 `json:"robustness"`
	Reliability     float64 `json:"reliability"`
	Reputation      float64 `json:"reputation"`
	Transparency    float64 `json:"transparency"`
	UpdateFrequency float64 `json:"update_frequency"`
}

func (w SourceTrustworthinessWeights) values() []float64 {
	return []float64{
		w.Security, w.Privacy, w.Ethics, w.Resiliency, w.Robustness,
		w.Reliability, w.Reputation, w.Transparency, w.UpdateFrequency,
	}
}

// DefaultSourceTrustWeights weighs every dimension equally.
func DefaultSourceTrustWeights() SourceTrustworthinessWeights {
	const eq = 1.0 / 9
	return SourceTrustworthinessWeights{
		Security: eq, Privacy: eq, Ethics: eq, Resiliency: eq, Robustness: eq,
		Reliability: eq, Reputation: eq, Transparency: eq, UpdateFrequency: eq,
	}
}

// ScoreSourceTrust computes ScoreST. A nil or all-zero weight vector means
// equal weights.
func ScoreSourceTrust(m SourceTrustworthinessMetrics, w *SourceTrustworthinessWeights) model.StageResult {
	fallback := DefaultSourceTrustWeights().values()
	if w == nil {
		return weightedSum(SourceTrustDimensions, normalizeOr("source_trust", fallback, fallback), m.values())
	}
	return weightedSum(SourceTrustDimensions, normalizeOr("source_trust", w.values(), fallback), m.values())
}
