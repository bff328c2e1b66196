package scorer

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/identity-trust/internal/model"
)

// Weights gathers every weight vector and composer parameter the pipeline
// uses.
type Weights struct {
	DataQuality          DataQualityWeights           `json:"data_quality"`
	SourceTrust          SourceTrustworthinessWeights `json:"source_trust"`
	Reputation           ReputationWeights            `json:"reputation"`
	RawTrust             RawTrustWeights              `json:"raw_trust"`
	Confidence           ConfidenceWeights            `json:"confidence"`
	MaxCS                float64                      `json:"max_cs"`
	InitialTrustEstimate float64                      `json:"initial_trust_estimate"`

	// RandomizeConfidence replaces Confidence with a fresh draw from
	// [ConfidenceMin, ConfidenceMax] on every assessment.
	RandomizeConfidence bool    `json:"randomize_confidence"`
	ConfidenceMin       float64 `json:"confidence_min"`
	ConfidenceMax       float64 `json:"confidence_max"`
}

// DefaultWeights returns the documented default for every stage.
func DefaultWeights() Weights {
	return Weights{
		DataQuality:          DefaultDataQualityWeights(),
		SourceTrust:          DefaultSourceTrustWeights(),
		Reputation:           DefaultReputationWeights(),
		RawTrust:             DefaultRawTrustWeights(),
		Confidence:           DefaultConfidenceWeights(),
		MaxCS:                DefaultMaxCS,
		InitialTrustEstimate: 50,
		ConfidenceMin:        0.5,
		ConfidenceMax:        0.7,
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used to age registration dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRand sets the random source for randomized confidence weights.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pipeline) { p.rng = rng }
}

// Pipeline runs the full scoring chain for a record. It is safe for
// concurrent use.
type Pipeline struct {
	weights Weights
	now     func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a Pipeline with the given weights.
func New(w Weights, opts ...Option) *Pipeline {
	p := &Pipeline{weights: w, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Weights returns the weights the pipeline was built with.
func (p *Pipeline) Weights() Weights {
	return p.weights
}

// ConfidenceWeights returns the confidence weights for the next assessment:
// the configured pair, or a fresh random draw when randomization is on.
func (p *Pipeline) ConfidenceWeights() ConfidenceWeights {
	if !p.weights.RandomizeConfidence {
		return p.weights.Confidence
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return RandomizeConfidenceWeights(p.rng, p.weights.ConfidenceMin, p.weights.ConfidenceMax)
}

// Assess derives metrics from rec and runs every scoring stage.
func (p *Pipeline) Assess(rec model.Record) model.Assessment {
	now := p.now()
	w := p.weights

	m := DeriveMetrics(rec, now, w.Reputation)

	dq := ScoreDataQuality(m.DataQuality, &w.DataQuality)
	st := ScoreSourceTrust(m.SourceTrust, &w.SourceTrust)
	raw := ScoreRawTrust(m.RawTrust, w.RawTrust)
	cs := ScoreConfidence(ConfidenceInputs{ScoreDQ: dq.Total, ScoreST: st.Total}, p.ConfidenceWeights())
	final := ComposeFinalScore(FinalScoreInputs{
		TSRaw:                raw.Total,
		CS:                   cs.Total,
		MaxCS:                w.MaxCS,
		InitialTrustEstimate: w.InitialTrustEstimate,
		EmpiricalTrustScore:  raw.Total,
	})

	a := model.Assessment{
		RecordID:   rec.ID(),
		Name:       rec.DisplayName(),
		TSRaw:      raw.Total,
		CS:         cs.Total,
		DISOption1: final.Option1.DIS,
		DISOption2: final.Option2.DIS,
		Breakdown: model.AssessmentBreakdown{
			Signals:     m.Signals,
			DataQuality: dq,
			SourceTrust: st,
			Reputation:  m.Reputation,
			RawTrust:    raw,
			Confidence:  cs,
			Final:       final,
		},
		CreatedAt: now.UTC(),
	}

	zap.L().Debug("scorer: assessed record",
		zap.String("record_id", a.RecordID),
		zap.Float64("ts_raw", a.TSRaw),
		zap.Float64("cs", a.CS),
		zap.Float64("dis_option1", a.DISOption1),
		zap.Float64("dis_option2", a.DISOption2),
	)
	return a
}

// AssessBatch assesses records concurrently, at most concurrency at a time,
// and returns results in input order.
func (p *Pipeline) AssessBatch(ctx context.Context, recs []model.Record, concurrency int) ([]model.Assessment, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	out := make([]model.Assessment, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = p.Assess(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scorer: assess batch")
	}
	return out, nil
}
