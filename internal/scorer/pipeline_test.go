package scorer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-trust/internal/model"
)

func newTestPipeline(w Weights, opts ...Option) *Pipeline {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(w, opts...)
}

func TestPipelineAssess_FullRecord(t *testing.T) {
	p := newTestPipeline(DefaultWeights())
	a := p.Assess(fullRecord())

	assert.Empty(t, a.ID)
	assert.Equal(t, "p-1", a.RecordID)
	assert.Equal(t, fixedNow, a.CreatedAt)

	b := a.Breakdown
	assert.InDelta(t, b.RawTrust.Total, a.TSRaw, eps)
	assert.InDelta(t, b.Confidence.Total, a.CS, eps)
	assert.InDelta(t, 0.6*b.DataQuality.Total+0.4*b.SourceTrust.Total, a.CS, eps)
	assert.InDelta(t, a.TSRaw*a.CS/100, a.DISOption1, eps)
	assert.InDelta(t, (1-a.CS/100)*50+(a.CS/100)*a.TSRaw, a.DISOption2, eps)

	for _, v := range []float64{a.TSRaw, a.CS, a.DISOption1, a.DISOption2} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestPipelineAssess_RicherRecordScoresHigher(t *testing.T) {
	p := newTestPipeline(DefaultWeights())

	sparse := p.Assess(model.Record{"name": "Anon"})
	rich := p.Assess(fullRecord())

	assert.Greater(t, rich.TSRaw, sparse.TSRaw)
	assert.Greater(t, rich.CS, sparse.CS)
	assert.Greater(t, rich.DISOption1, sparse.DISOption1)
	assert.Equal(t, "Anon", sparse.Name)
}

func TestPipelineAssess_Deterministic(t *testing.T) {
	p := newTestPipeline(DefaultWeights())
	assert.Equal(t, p.Assess(fullRecord()), p.Assess(fullRecord()))
}

func TestPipelineAssess_MaxCSScale(t *testing.T) {
	w := DefaultWeights()
	w.MaxCS = 200
	half := newTestPipeline(w).Assess(fullRecord())
	full := newTestPipeline(DefaultWeights()).Assess(fullRecord())

	assert.InDelta(t, full.DISOption1/2, half.DISOption1, eps)
}

func TestPipelineConfidenceWeights_Randomized(t *testing.T) {
	w := DefaultWeights()
	w.RandomizeConfidence = true
	w.ConfidenceMin = 0.55
	w.ConfidenceMax = 0.65

	p := newTestPipeline(w, WithRand(rand.New(rand.NewPCG(11, 13))))
	for i := 0; i < 50; i++ {
		cw := p.ConfidenceWeights()
		assert.GreaterOrEqual(t, cw.WDQ, 0.55)
		assert.LessOrEqual(t, cw.WDQ, 0.65)
	}

	a := p.Assess(fullRecord())
	dq, st := a.Breakdown.DataQuality.Total, a.Breakdown.SourceTrust.Total
	lo, hi := 0.55*dq+0.45*st, 0.65*dq+0.35*st
	if lo > hi {
		lo, hi = hi, lo
	}
	assert.GreaterOrEqual(t, a.CS, lo-eps)
	assert.LessOrEqual(t, a.CS, hi+eps)
}

func TestPipelineConfidenceWeights_Fixed(t *testing.T) {
	w := DefaultWeights()
	w.Confidence = ConfidenceWeights{WDQ: 0.9, WST: 0.1}
	assert.Equal(t, w.Confidence, newTestPipeline(w).ConfidenceWeights())
}

func TestPipelineAssess_ConcurrentRandomized(t *testing.T) {
	w := DefaultWeights()
	w.RandomizeConfidence = true
	p := newTestPipeline(w, WithRand(rand.New(rand.NewPCG(1, 1))))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Assess(fullRecord())
		}()
	}
	wg.Wait()
}

func TestAssessBatch_PreservesOrder(t *testing.T) {
	p := newTestPipeline(DefaultWeights())

	recs := make([]model.Record, 25)
	for i := range recs {
		recs[i] = model.Record{"id": fmt.Sprintf("r-%02d", i), "email": "x@acme.io"}
	}

	out, err := p.AssessBatch(context.Background(), recs, 4)
	require.NoError(t, err)
	require.Len(t, out, len(recs))
	for i, a := range out {
		assert.Equal(t, fmt.Sprintf("r-%02d", i), a.RecordID)
	}
}

func TestAssessBatch_ZeroConcurrency(t *testing.T) {
	p := newTestPipeline(DefaultWeights())
	out, err := p.AssessBatch(context.Background(), []model.Record{fullRecord()}, 0)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestAssessBatch_Empty(t *testing.T) {
	p := newTestPipeline(DefaultWeights())
	out, err := p.AssessBatch(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAssessBatch_CancelledContext(t *testing.T) {
	p := newTestPipeline(DefaultWeights())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.AssessBatch(ctx, []model.Record{fullRecord(), fullRecord()}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer: assess batch")
}
