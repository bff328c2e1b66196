package scorer

import (
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/identity-trust/internal/model"
)

// ReputationFeedback is one consortium member's vote on a record.
type ReputationFeedback struct {
	SCW float64 `json:"scw"` // source credibility weight, [0,1]
	DYK float64 `json:"dyk"` // "do you know", 0 or 1
	WDB float64 `json:"wdb"` // "would do business", 0 or 1
	FRD float64 `json:"frd"` // recency decay, [0,1]
	FVC float64 `json:"fvc"` // volume confidence, [0,1]
}

// ReputationWeights weighs the two binary signals and scales the summed
// result by the consensus factor CF.
//
// WDYK and WWDB gate independent signals and are used as supplied, not
// normalized against each other. CF is applied once to the sum.
type ReputationWeights struct {
	WDYK float64 `json:"wdyk"`
	WWDB float64 `json:"wwdb"`
	CF   float64 `json:"cf"`
}

// DefaultReputationWeights are the weights used for synthetic feedback
// during metric derivation.
func DefaultReputationWeights() ReputationWeights {
	return ReputationWeights{WDYK: 0.6, WWDB: 0.4, CF: 0.5}
}

// ScoreReputation computes the consortium reputation total
// CF × Σ SCWi × (DYKi×WDYK + WDBi×WWDB) × FRDi × FVCi.
// An empty feedback slice scores 0.
func ScoreReputation(feedback []ReputationFeedback, w ReputationWeights) model.ReputationResult {
	terms := make([]model.ReputationTerm, len(feedback))
	weighted := make([]float64, len(feedback))
	for i, f := range feedback {
		scw := clampUnit(f.SCW)
		frd := clampUnit(f.FRD)
		fvc := clampUnit(f.FVC)
		inner := f.DYK*w.WDYK + f.WDB*w.WWDB
		weighted[i] = scw * inner * frd * fvc
		terms[i] = model.ReputationTerm{
			Index:    i,
			SCW:      scw,
			DYK:      f.DYK,
			WDB:      f.WDB,
			FRD:      frd,
			FVC:      fvc,
			Inner:    inner,
			Weighted: weighted[i],
		}
	}
	return model.ReputationResult{
		Total: w.CF * floats.Sum(weighted),
		CF:    w.CF,
		Terms: terms,
	}
}
