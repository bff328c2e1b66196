package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/store"
)

// maxSnapshotAssessments bounds how many assessments one snapshot reads.
const maxSnapshotAssessments = 10000

// Snapshot is a point-in-time view of recent scoring activity.
type Snapshot struct {
	Assessments int `json:"assessments" yaml:"assessments"`
	StoredTotal int `json:"stored_total" yaml:"stored_total"`

	TSRaw      ScoreSummary `json:"ts_raw" yaml:"ts_raw"`
	CS         ScoreSummary `json:"cs" yaml:"cs"`
	DISOption1 ScoreSummary `json:"dis_option1" yaml:"dis_option1"`
	DISOption2 ScoreSummary `json:"dis_option2" yaml:"dis_option2"`

	LowTrust          int     `json:"low_trust" yaml:"low_trust"`
	LowTrustRate      float64 `json:"low_trust_rate" yaml:"low_trust_rate"`
	LowConfidence     int     `json:"low_confidence" yaml:"low_confidence"`
	LowConfidenceRate float64 `json:"low_confidence_rate" yaml:"low_confidence_rate"`
	VerifiedRate      float64 `json:"verified_rate" yaml:"verified_rate"`

	LookbackHours int       `json:"lookback_hours" yaml:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

// AssessmentSource is the part of store.Store the collector reads.
type AssessmentSource interface {
	ListAssessments(ctx context.Context, filter store.AssessmentFilter) ([]model.Assessment, error)
	CountAssessments(ctx context.Context) (int, error)
}

// Collector builds snapshots from the assessment audit trail.
type Collector struct {
	store AssessmentSource
	cfg   config.MonitoringConfig
	now   func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(st AssessmentSource, cfg config.MonitoringConfig) *Collector {
	return &Collector{store: st, cfg: cfg, now: time.Now}
}

// Collect summarizes assessments created within the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{LookbackHours: lookbackHours, CollectedAt: now}

	as, err := c.store.ListAssessments(ctx, store.AssessmentFilter{
		Since: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit: maxSnapshotAssessments,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list assessments")
	}

	total, err := c.store.CountAssessments(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count assessments")
	}
	snap.StoredTotal = total

	Fill(snap, as, c.cfg)
	return snap, nil
}

// Fill computes the score summaries and rates of snap from as. It is shared
// by Collect and by batch runs that never touch the store.
func Fill(snap *Snapshot, as []model.Assessment, cfg config.MonitoringConfig) {
	n := len(as)
	snap.Assessments = n
	if n == 0 {
		return
	}

	tsRaw := make([]float64, n)
	cs := make([]float64, n)
	dis1 := make([]float64, n)
	dis2 := make([]float64, n)
	var verified int
	for i, a := range as {
		tsRaw[i], cs[i], dis1[i], dis2[i] = a.TSRaw, a.CS, a.DISOption1, a.DISOption2
		if a.DISOption1 < cfg.LowTrustScore {
			snap.LowTrust++
		}
		if a.CS < cfg.LowConfidenceScore {
			snap.LowConfidence++
		}
		if a.Breakdown.Signals.IsValid {
			verified++
		}
	}

	snap.TSRaw = Summarize(tsRaw)
	snap.CS = Summarize(cs)
	snap.DISOption1 = Summarize(dis1)
	snap.DISOption2 = Summarize(dis2)
	snap.LowTrustRate = float64(snap.LowTrust) / float64(n)
	snap.LowConfidenceRate = float64(snap.LowConfidence) / float64(n)
	snap.VerifiedRate = float64(verified) / float64(n)
}
