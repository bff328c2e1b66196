package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "trust.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 3, cfg.Store.RetryMaxAttempts)
	assert.Equal(t, 50, cfg.Store.RetryBackoffMs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 10.0, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 20, cfg.Server.RateLimitBurst)
	assert.Equal(t, 50, cfg.Server.MaxRecords)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentRecords)
	assert.InDelta(t, 100.0, cfg.Trust.MaxCS, 0.001)
	assert.InDelta(t, 50.0, cfg.Trust.InitialTrustEstimate, 0.001)
	assert.False(t, cfg.Trust.RandomizeConfidence)
	assert.InDelta(t, 0.5, cfg.Trust.ConfidenceMin, 0.001)
	assert.InDelta(t, 0.7, cfg.Trust.ConfidenceMax, 0.001)
	assert.Empty(t, cfg.Trust.RawTrustWeights)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 40.0, cfg.Monitoring.LowTrustScore, 0.001)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.InDelta(t, 20.0, cfg.Fetch.RatePerSec, 0.001)
	assert.Equal(t, int64(64<<20), cfg.Fetch.FTPMaxBytes)
	assert.Empty(t, cfg.Fetch.BearerToken)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/trust
log:
  level: debug
  format: console
server:
  port: 9090
trust:
  max_cs: 80
  randomize_confidence: true
  raw_trust_weights:
    ivh: 0.5
    abd: 0.5
  confidence_weights:
    wdq: 0.7
    wst: 0.3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/trust", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 80.0, cfg.Trust.MaxCS, 0.001)
	assert.True(t, cfg.Trust.RandomizeConfidence)
	assert.InDelta(t, 0.5, cfg.Trust.RawTrustWeights["ivh"], 0.001)
	assert.InDelta(t, 0.5, cfg.Trust.RawTrustWeights["abd"], 0.001)
	assert.InDelta(t, 0.7, cfg.Trust.ConfidenceWeights["wdq"], 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentRecords)
	assert.InDelta(t, 50.0, cfg.Trust.InitialTrustEstimate, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TRUST_STORE_DRIVER", "postgres")
	t.Setenv("TRUST_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("TRUST_SERVER_PORT", "3000")
	t.Setenv("TRUST_TRUST_MAX_CS", "90")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.InDelta(t, 90.0, cfg.Trust.MaxCS, 0.001)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "trust.db"
	cfg.Server.Port = 8080
	cfg.Server.RateLimitRPS = 10
	cfg.Batch.MaxConcurrentRecords = 8
	return cfg
}

func TestValidateScore_NoStoreNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	assert.NoError(t, cfg.Validate("score"))
}

func TestValidateStore_MissingURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateStore_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrentRecords = 0
	err := cfg.Validate("score")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_records must be between 1 and 64")

	cfg.Batch.MaxConcurrentRecords = 65
	err = cfg.Validate("score")
	assert.Error(t, err)

	cfg.Batch.MaxConcurrentRecords = 64
	assert.NoError(t, cfg.Validate("score"))
}

func TestValidateFetchNegative(t *testing.T) {
	cfg := validDefaults()
	cfg.Fetch.FTPMaxBytes = -1

	err := cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.timeout_secs, fetch.max_retries and fetch.ftp_max_bytes must be >= 0")
}
