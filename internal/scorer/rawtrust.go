package scorer

import "github.com/sells-group/identity-trust/internal/model"

// RawTrustFactors lists the raw trust factors in breakdown order.
var RawTrustFactors = []string{"ivh", "abd", "dit", "rie", "ivsd", "rep", "beh"}

// RawTrustInputs are the seven component scores behind TSRaw, each 0-100.
type RawTrustInputs struct {
	IVH  float64 `json:"ivh"`  // identity verification history
	ABD  float64 `json:"abd"`  // attribute depth and breadth
	DIT  float64 `json:"dit"`  // digital identity tenure
	RIE  float64 `json:"rie"`  // recent identity events
	IVSD float64 `json:"ivsd"` // identity verification source diversity
	Rep  float64 `json:"rep"`  // consortium reputation scaled to 0-100
	Beh  float64 `json:"beh"`  // behavioral signal
}

func (in RawTrustInputs) values() []float64 {
	return []float64{in.IVH, in.ABD, in.DIT, in.RIE, in.IVSD, in.Rep, in.Beh}
}

// RawTrustWeights weighs each raw trust factor.
type RawTrustWeights struct {
	WIVH  float64 `json:"wivh"`
	WABD  float64 `json:"wabd"`
	WDIT  float64 `json:"wdit"`
	WRIE  float64 `json:"wrie"`
	WIVSD float64 `json:"wivsd"`
	WRep  float64 `json:"wrep"`
	WBeh  float64 `json:"wbeh"`
}

func (w RawTrustWeights) values() []float64 {
	return []float64{w.WIVH, w.WABD, w.WDIT, w.WRIE, w.WIVSD, w.WRep, w.WBeh}
}

// DefaultRawTrustWeights is the fallback vector. It sums to 1.20 and is
// normalized like any other.
func DefaultRawTrustWeights() RawTrustWeights {
	return RawTrustWeights{
		WIVH:  0.35,
		WABD:  0.30,
		WDIT:  0.15,
		WRIE:  0.10,
		WIVSD: 0.10,
		WRep:  0.10,
		WBeh:  0.10,
	}
}

// ScoreRawTrust computes TSRaw.
func ScoreRawTrust(in RawTrustInputs, w RawTrustWeights) model.StageResult {
	norm := normalizeOr("raw_trust", w.values(), DefaultRawTrustWeights().values())
	return weightedSum(RawTrustFactors, norm, in.values())
}
