package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/scorer"
	"github.com/sells-group/identity-trust/internal/store"
)

// pipelineEnv holds the scoring pipeline and, when a command needs it, the
// store.
type pipelineEnv struct {
	Store    store.Store // nil unless requested
	Pipeline *scorer.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline builds the pipeline from the trust config and opens the store
// when withStore is set. Callers should defer env.Close().
func initPipeline(ctx context.Context, withStore bool) (*pipelineEnv, error) {
	if err := cfg.Validate("score"); err != nil {
		return nil, err
	}

	p, err := newPipeline(cfg.Trust)
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{Pipeline: p}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	return env, nil
}

// newPipeline validates tc and builds a pipeline from it.
func newPipeline(tc config.TrustConfig) (*scorer.Pipeline, error) {
	w, err := scorer.WeightsFromConfig(tc)
	if err != nil {
		return nil, eris.Wrap(err, "init pipeline")
	}

	zap.L().Debug("pipeline initialized",
		zap.Float64("max_cs", w.MaxCS),
		zap.Bool("randomize_confidence", w.RandomizeConfidence),
		zap.Float64("wdq", w.Confidence.WDQ),
		zap.Float64("wst", w.Confidence.WST),
	)
	return scorer.New(w), nil
}
