package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/identity-trust/internal/config"
)

func TestDefaultTrustConfig_RoundTrips(t *testing.T) {
	w, err := WeightsFromConfig(DefaultTrustConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)
}

func TestDefaultTrustConfig_Sums(t *testing.T) {
	c := DefaultTrustConfig()
	assert.InDelta(t, 1.0, WeightSum(c.DataQualityWeights), eps)
	assert.InDelta(t, 1.0, WeightSum(c.SourceTrustWeights), eps)
	assert.InDelta(t, 1.20, WeightSum(c.RawTrustWeights), eps)
	assert.InDelta(t, 1.0, WeightSum(c.ConfidenceWeights), eps)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.TrustConfig)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *config.TrustConfig) {},
		},
		{
			name: "zero vector accepted",
			mutate: func(c *config.TrustConfig) {
				c.RawTrustWeights = map[string]float64{"ivh": 0, "abd": 0}
			},
		},
		{
			name: "negative cf accepted",
			mutate: func(c *config.TrustConfig) {
				c.ReputationWeights["cf"] = -0.5
			},
		},
		{
			name: "unknown key",
			mutate: func(c *config.TrustConfig) {
				c.DataQualityWeights["freshness"] = 1
			},
			wantErr: `data_quality_weights: unknown key "freshness"`,
		},
		{
			name: "negative weight",
			mutate: func(c *config.TrustConfig) {
				c.SourceTrustWeights["privacy"] = -1
			},
			wantErr: "source_trust_weights.privacy must be >= 0",
		},
		{
			name: "non-finite weight",
			mutate: func(c *config.TrustConfig) {
				c.ConfidenceWeights["wdq"] = math.Inf(1)
			},
			wantErr: "confidence_weights.wdq must be finite",
		},
		{
			name: "negative max_cs",
			mutate: func(c *config.TrustConfig) {
				c.MaxCS = -1
			},
			wantErr: "max_cs must be >= 0",
		},
		{
			name: "prior out of range",
			mutate: func(c *config.TrustConfig) {
				c.InitialTrustEstimate = 140
			},
			wantErr: "initial_trust_estimate must be between 0 and 100",
		},
		{
			name: "inverted randomization bounds",
			mutate: func(c *config.TrustConfig) {
				c.RandomizeConfidence = true
				c.ConfidenceMin = 0.8
				c.ConfidenceMax = 0.6
			},
			wantErr: "confidence_max must be >= confidence_min",
		},
		{
			name: "randomization bounds ignored when off",
			mutate: func(c *config.TrustConfig) {
				c.ConfidenceMin = 3
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultTrustConfig()
			tt.mutate(&c)
			err := ValidateConfig(c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWeightsFromConfig_PartialVector(t *testing.T) {
	c := config.TrustConfig{
		RawTrustWeights: map[string]float64{"ivh": 1, "abd": 1},
		MaxCS:           100,
	}

	w, err := WeightsFromConfig(c)
	require.NoError(t, err)

	assert.Equal(t, RawTrustWeights{WIVH: 1, WABD: 1}, w.RawTrust)
	// Absent vectors keep defaults.
	assert.Equal(t, DefaultDataQualityWeights(), w.DataQuality)
	assert.Equal(t, DefaultReputationWeights(), w.Reputation)
	assert.Equal(t, DefaultConfidenceWeights(), w.Confidence)
}

func TestWeightsFromConfig_RandomizationBounds(t *testing.T) {
	c := DefaultTrustConfig()
	c.RandomizeConfidence = true
	c.ConfidenceMin = 0.4
	c.ConfidenceMax = 0.9

	w, err := WeightsFromConfig(c)
	require.NoError(t, err)
	assert.True(t, w.RandomizeConfidence)
	assert.Equal(t, 0.4, w.ConfidenceMin)
	assert.Equal(t, 0.9, w.ConfidenceMax)
}

func TestWeightsFromConfig_Invalid(t *testing.T) {
	c := DefaultTrustConfig()
	c.RawTrustWeights["ivh"] = -2

	_, err := WeightsFromConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer: config validation failed")
}
