package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockSource implements AssessmentSource for testing.
type mockSource struct {
	assessments []model.Assessment
	total       int
	listErr     error
	countErr    error
	lastFilter  store.AssessmentFilter
}

func (m *mockSource) ListAssessments(_ context.Context, filter store.AssessmentFilter) ([]model.Assessment, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Assessment
	for _, a := range m.assessments {
		if !filter.Since.IsZero() && a.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockSource) CountAssessments(context.Context) (int, error) {
	return m.total, m.countErr
}

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		LookbackWindowHours:        24,
		MinAssessments:             3,
		LowTrustScore:              40,
		LowTrustRateThreshold:      0.5,
		LowConfidenceScore:         60,
		LowConfidenceRateThreshold: 0.5,
	}
}

func assessmentAt(dis, cs float64, age time.Duration, valid bool) model.Assessment {
	a := model.Assessment{
		TSRaw:      dis,
		CS:         cs,
		DISOption1: dis,
		DISOption2: (dis + cs) / 2,
		CreatedAt:  testNow.Add(-age),
	}
	a.Breakdown.Signals.IsValid = valid
	return a
}

func newTestCollector(src AssessmentSource) *Collector {
	c := NewCollector(src, testMonitoringConfig())
	c.now = func() time.Time { return testNow }
	return c
}

func TestCollector_Collect(t *testing.T) {
	src := &mockSource{
		total: 10,
		assessments: []model.Assessment{
			assessmentAt(20, 50, time.Hour, false),
			assessmentAt(30, 70, 2*time.Hour, true),
			assessmentAt(80, 90, 3*time.Hour, true),
			assessmentAt(90, 95, 4*time.Hour, true),
			// Outside the window.
			assessmentAt(5, 5, 48*time.Hour, false),
		},
	}

	snap, err := newTestCollector(src).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, testNow.Add(-24*time.Hour), src.lastFilter.Since)
	assert.Equal(t, maxSnapshotAssessments, src.lastFilter.Limit)

	assert.Equal(t, 4, snap.Assessments)
	assert.Equal(t, 10, snap.StoredTotal)
	assert.Equal(t, 2, snap.LowTrust)
	assert.InDelta(t, 0.5, snap.LowTrustRate, 1e-9)
	assert.Equal(t, 1, snap.LowConfidence)
	assert.InDelta(t, 0.25, snap.LowConfidenceRate, 1e-9)
	assert.InDelta(t, 0.75, snap.VerifiedRate, 1e-9)
	assert.InDelta(t, 55.0, snap.DISOption1.Mean, 1e-9)
	assert.Equal(t, 20.0, snap.DISOption1.Min)
	assert.Equal(t, 90.0, snap.DISOption1.Max)
	assert.Equal(t, 4, snap.CS.Count)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, testNow, snap.CollectedAt)
}

func TestCollector_Collect_Empty(t *testing.T) {
	snap, err := newTestCollector(&mockSource{}).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Assessments)
	assert.Zero(t, snap.LowTrustRate)
	assert.Equal(t, ScoreSummary{}, snap.TSRaw)
}

func TestCollector_Collect_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     *mockSource
		wantErr string
	}{
		{"list", &mockSource{listErr: errors.New("boom")}, "monitoring: list assessments"},
		{"count", &mockSource{countErr: errors.New("boom")}, "monitoring: count assessments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCollector(tt.src).Collect(context.Background(), 24)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFill_ThresholdsAreStrict(t *testing.T) {
	snap := &Snapshot{}
	Fill(snap, []model.Assessment{assessmentAt(40, 60, 0, false)}, testMonitoringConfig())

	assert.Equal(t, 0, snap.LowTrust)
	assert.Equal(t, 0, snap.LowConfidence)
}
