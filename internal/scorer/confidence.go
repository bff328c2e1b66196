package scorer

import "github.com/sells-group/identity-trust/internal/model"

// ConfidenceInputs are the upstream scores blended into CS.
type ConfidenceInputs struct {
	ScoreDQ float64 `json:"score_dq"`
	ScoreST float64 `json:"score_st"`
}

// ConfidenceWeights weighs data quality against source trustworthiness.
type ConfidenceWeights struct {
	WDQ float64 `json:"wdq"`
	WST float64 `json:"wst"`
}

// DefaultConfidenceWeights favours data quality 60/40.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{WDQ: 0.6, WST: 0.4}
}

// ScoreConfidence computes CS = WDQ'×ScoreDQ + WST'×ScoreST.
func ScoreConfidence(in ConfidenceInputs, w ConfidenceWeights) model.StageResult {
	def := DefaultConfidenceWeights()
	norm := normalizeOr("confidence", []float64{w.WDQ, w.WST}, []float64{def.WDQ, def.WST})
	return weightedSum([]string{"data_quality", "source_trust"}, norm, []float64{in.ScoreDQ, in.ScoreST})
}
