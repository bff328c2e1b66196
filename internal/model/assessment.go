package model

import "time"

// BreakdownEntry is one weighted dimension of a stage score.
type BreakdownEntry struct {
	Name          string  `json:"name" yaml:"name"`
	Weight        float64 `json:"weight" yaml:"weight"`
	Score         float64 `json:"score" yaml:"score"`
	WeightedScore float64 `json:"weighted_score" yaml:"weighted_score"`
}

// StageResult is the output of a weighted-aggregate scoring stage. Total is
// the sum of the WeightedScore entries.
type StageResult struct {
	Total     float64          `json:"total" yaml:"total"`
	Breakdown []BreakdownEntry `json:"breakdown" yaml:"breakdown"`
}

// ReputationTerm is the contribution of one consortium feedback entry.
type ReputationTerm struct {
	Index    int     `json:"index" yaml:"index"`
	SCW      float64 `json:"scw" yaml:"scw"`
	DYK      float64 `json:"dyk" yaml:"dyk"`
	WDB      float64 `json:"wdb" yaml:"wdb"`
	FRD      float64 `json:"frd" yaml:"frd"`
	FVC      float64 `json:"fvc" yaml:"fvc"`
	Inner    float64 `json:"inner" yaml:"inner"`
	Weighted float64 `json:"weighted" yaml:"weighted"`
}

// ReputationResult is the consortium reputation total with per-term detail.
type ReputationResult struct {
	Total float64          `json:"total" yaml:"total"`
	CF    float64          `json:"cf" yaml:"cf"`
	Terms []ReputationTerm `json:"terms" yaml:"terms"`
}

// DirectModulation is DIS option 1: confidence dampens raw trust.
type DirectModulation struct {
	CSFactor float64 `json:"cs_factor" yaml:"cs_factor"`
	DIS      float64 `json:"dis" yaml:"dis"`
}

// HybridBlend is DIS option 2: confidence blends a prior with an empirical
// trust estimate.
type HybridBlend struct {
	ConfidenceWeight float64 `json:"confidence_weight" yaml:"confidence_weight"`
	DIS              float64 `json:"dis" yaml:"dis"`
}

// FinalScore holds both Digital Identity Score compositions.
type FinalScore struct {
	Option1 DirectModulation `json:"option1" yaml:"option1"`
	Option2 HybridBlend      `json:"option2" yaml:"option2"`
}

// Signals are the heuristics read off a record's shape.
type Signals struct {
	HasEmail          bool   `json:"has_email" yaml:"has_email"`
	HasPhone          bool   `json:"has_phone" yaml:"has_phone"`
	HasLocation       bool   `json:"has_location" yaml:"has_location"`
	HasAddress        bool   `json:"has_address" yaml:"has_address"`
	IsValid           bool   `json:"is_valid" yaml:"is_valid"`
	DaysOld           int    `json:"days_old" yaml:"days_old"`
	DaysOldKnown      bool   `json:"days_old_known" yaml:"days_old_known"`
	EmailDomain       string `json:"email_domain,omitempty" yaml:"email_domain,omitempty"`
	IsCorporateDomain bool   `json:"is_corporate_domain" yaml:"is_corporate_domain"`
}

// AssessmentBreakdown carries every intermediate stage so callers can audit
// how the final scores were derived.
type AssessmentBreakdown struct {
	Signals     Signals          `json:"signals" yaml:"signals"`
	DataQuality StageResult      `json:"data_quality" yaml:"data_quality"`
	SourceTrust StageResult      `json:"source_trust" yaml:"source_trust"`
	Reputation  ReputationResult `json:"reputation" yaml:"reputation"`
	RawTrust    StageResult      `json:"raw_trust" yaml:"raw_trust"`
	Confidence  StageResult      `json:"confidence" yaml:"confidence"`
	Final       FinalScore       `json:"final" yaml:"final"`
}

// Assessment is the score bundle produced for one record.
type Assessment struct {
	ID         string              `json:"id" yaml:"id"`
	Query      string              `json:"query,omitempty" yaml:"query,omitempty"`
	RecordID   string              `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	TSRaw      float64             `json:"ts_raw" yaml:"ts_raw"`
	CS         float64             `json:"cs" yaml:"cs"`
	DISOption1 float64             `json:"dis_option1" yaml:"dis_option1"`
	DISOption2 float64             `json:"dis_option2" yaml:"dis_option2"`
	Breakdown  AssessmentBreakdown `json:"breakdown" yaml:"breakdown"`
	CreatedAt  time.Time           `json:"created_at" yaml:"created_at"`
}
