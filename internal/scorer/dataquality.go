package scorer

import "github.com/sells-group/identity-trust/internal/model"

// DataQualityDimensions lists the data quality dimensions in breakdown order.
var DataQualityDimensions = []string{
	"completeness", "consistency", "validity", "accuracy",
	"timeliness", "uniqueness", "precision", "usability",
}

// DataQualityMetrics holds the eight data quality dimensions, each nominally
// on a 0-100 scale.
type DataQualityMetrics struct {
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Accuracy     float64 `json:"accuracy"`
	Timeliness   float64 `json:"timeliness"`
	Uniqueness   float64 `json:"uniqueness"`
	Precision    float64 `json:"precision"`
	Usability    float64 `json:"usability"`
}

func (m DataQualityMetrics) values() []float64 {
	return []float64{
		m.Completeness, m.Consistency, m.Validity, m.Accuracy,
		m.Timeliness, m.Uniqueness, m.Precision, m.Usability,
	}
}

// DataQualityWeights is a relative-importance vector over the data quality
// dimensions. It need not sum to 1.
type DataQualityWeights struct {
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Accuracy     float64 `json:"accuracy"`
	Timeliness   float64 `json:"timeliness"`
	Uniqueness   float64 `json:"uniqueness"`
	Precision    float64 `json:"precision"`
	Usability    float64 `json:"usability"`
}

func (w DataQualityWeights) values() []float64 {
	return []float64{
		w.Completeness, w.Consistency, w.Validity, w.Accuracy,
		w.Timeliness, w.Uniqueness, w.Precision, w.Usability,
	}
}

// DefaultDataQualityWeights weighs every dimension equally.
func DefaultDataQualityWeights() DataQualityWeights {
	const eq = 1.0 / 8
	return DataQualityWeights{
		Completeness: eq, Consistency: eq, Validity: eq, Accuracy: eq,
		Timeliness: eq, Uniqueness: eq, Precision: eq, Usability: eq,
	}
}

// ScoreDataQuality computes ScoreDQ. A nil or all-zero weight vector means
// equal weights.
func ScoreDataQuality(m DataQualityMetrics, w *DataQualityWeights) model.StageResult {
	fallback := DefaultDataQualityWeights().values()
	if w == nil {
		return weightedSum(DataQualityDimensions, normalizeOr("data_quality", fallback, fallback), m.values())
	}
	return weightedSum(DataQualityDimensions, normalizeOr("data_quality", w.values(), fallback), m.values())
}
