package scorer

import (
	"math"

	"github.com/sells-group/identity-trust/internal/model"
)

// DefaultMaxCS is the scale CS is measured against when none is given.
const DefaultMaxCS = 100.0

// FinalScoreInputs feed the Digital Identity Score composer.
type FinalScoreInputs struct {
	TSRaw                float64 `json:"ts_raw"`
	CS                   float64 `json:"cs"`
	MaxCS                float64 `json:"max_cs"`
	InitialTrustEstimate float64 `json:"initial_trust_estimate"`
	EmpiricalTrustScore  float64 `json:"empirical_trust_score"`
}

// ComposeFinalScore computes both DIS options.
//
// Option 1 scales TSRaw by CS/MaxCS. Option 2 blends InitialTrustEstimate
// and EmpiricalTrustScore with CS/MaxCS as the empirical share.
//
// Inputs are floored at 0 but not capped. CS above MaxCS is allowed and
// yields a factor above 1, so option 1 can exceed TSRaw.
func ComposeFinalScore(in FinalScoreInputs) model.FinalScore {
	tsRaw := nonNegative(in.TSRaw)
	cs := nonNegative(in.CS)
	initial := nonNegative(in.InitialTrustEstimate)
	empirical := nonNegative(in.EmpiricalTrustScore)

	maxCS := in.MaxCS
	if math.IsNaN(maxCS) || maxCS <= 0 {
		maxCS = DefaultMaxCS
	}

	csFactor := cs / maxCS
	confidenceWeight := cs / maxCS

	return model.FinalScore{
		Option1: model.DirectModulation{
			CSFactor: csFactor,
			DIS:      tsRaw * csFactor,
		},
		Option2: model.HybridBlend{
			ConfidenceWeight: confidenceWeight,
			DIS:              (1-confidenceWeight)*initial + confidenceWeight*empirical,
		},
	}
}
