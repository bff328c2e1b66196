package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Trust      TrustConfig      `yaml:"trust" mapstructure:"trust"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	// Writes retry on busy/locked and dropped-connection errors.
	RetryMaxAttempts int `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryBackoffMs   int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	MaxRecords     int      `yaml:"max_records" mapstructure:"max_records"`
	SaveByDefault  bool     `yaml:"save_by_default" mapstructure:"save_by_default"`
}

// BatchConfig configures batch scoring.
type BatchConfig struct {
	MaxConcurrentRecords int `yaml:"max_concurrent_records" mapstructure:"max_concurrent_records"`
}

// TrustConfig holds the scoring weights, keyed by dimension name. A vector
// left out entirely keeps its built-in default.
type TrustConfig struct {
	DataQualityWeights   map[string]float64 `json:"data_quality_weights" yaml:"data_quality_weights" mapstructure:"data_quality_weights"`
	SourceTrustWeights   map[string]float64 `json:"source_trust_weights" yaml:"source_trust_weights" mapstructure:"source_trust_weights"`
	RawTrustWeights      map[string]float64 `json:"raw_trust_weights" yaml:"raw_trust_weights" mapstructure:"raw_trust_weights"`
	ReputationWeights    map[string]float64 `json:"reputation_weights" yaml:"reputation_weights" mapstructure:"reputation_weights"`
	ConfidenceWeights    map[string]float64 `json:"confidence_weights" yaml:"confidence_weights" mapstructure:"confidence_weights"`
	MaxCS                float64            `json:"max_cs" yaml:"max_cs" mapstructure:"max_cs"`
	InitialTrustEstimate float64            `json:"initial_trust_estimate" yaml:"initial_trust_estimate" mapstructure:"initial_trust_estimate"`
	RandomizeConfidence  bool               `json:"randomize_confidence" yaml:"randomize_confidence" mapstructure:"randomize_confidence"`
	ConfidenceMin        float64            `json:"confidence_min" yaml:"confidence_min" mapstructure:"confidence_min"`
	ConfidenceMax        float64            `json:"confidence_max" yaml:"confidence_max" mapstructure:"confidence_max"`
}

// MonitoringConfig configures the assessment snapshot and the background
// alert checker run by serve.
type MonitoringConfig struct {
	Enabled             bool   `yaml:"enabled" mapstructure:"enabled"`
	LookbackWindowHours int    `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs   int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinAssessments      int    `yaml:"min_assessments" mapstructure:"min_assessments"`

	// An assessment is low-trust when DIS option 1 falls below
	// LowTrustScore, and low-confidence when CS falls below
	// LowConfidenceScore. Rates above the thresholds raise alerts.
	LowTrustScore              float64 `yaml:"low_trust_score" mapstructure:"low_trust_score"`
	LowTrustRateThreshold      float64 `yaml:"low_trust_rate_threshold" mapstructure:"low_trust_rate_threshold"`
	LowConfidenceScore         float64 `yaml:"low_confidence_score" mapstructure:"low_confidence_score"`
	LowConfidenceRateThreshold float64 `yaml:"low_confidence_rate_threshold" mapstructure:"low_confidence_rate_threshold"`
}

// FetchConfig configures remote record sources (http, https and ftp URLs).
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BearerToken string  `yaml:"bearer_token" mapstructure:"bearer_token"`
	FTPMaxBytes int64   `yaml:"ftp_max_bytes" mapstructure:"ftp_max_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trust.db")
	v.SetDefault("store.retry_max_attempts", 3)
	v.SetDefault("store.retry_backoff_ms", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.max_records", 50)
	v.SetDefault("batch.max_concurrent_records", 8)
	v.SetDefault("trust.max_cs", 100.0)
	v.SetDefault("trust.initial_trust_estimate", 50.0)
	v.SetDefault("trust.randomize_confidence", false)
	v.SetDefault("trust.confidence_min", 0.5)
	v.SetDefault("trust.confidence_max", 0.7)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.min_assessments", 5)
	v.SetDefault("monitoring.low_trust_score", 40.0)
	v.SetDefault("monitoring.low_trust_rate_threshold", 0.5)
	v.SetDefault("monitoring.low_confidence_score", 60.0)
	v.SetDefault("monitoring.low_confidence_rate_threshold", 0.5)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 20.0)
	v.SetDefault("fetch.ftp_max_bytes", 64<<20)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys required by mode are present. Modes:
// "score" (no external dependencies), "store" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "score":
	case "store", "serve":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver))
		}
		if mode == "serve" {
			if c.Server.Port <= 0 {
				errs = append(errs, "server.port must be > 0")
			}
			if c.Server.RateLimitRPS < 0 {
				errs = append(errs, "server.rate_limit_rps must be >= 0")
			}
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Fetch.TimeoutSecs < 0 || c.Fetch.MaxRetries < 0 || c.Fetch.FTPMaxBytes < 0 {
		errs = append(errs, "fetch.timeout_secs, fetch.max_retries and fetch.ftp_max_bytes must be >= 0")
	}

	if c.Batch.MaxConcurrentRecords < 1 || c.Batch.MaxConcurrentRecords > 64 {
		errs = append(errs, "batch.max_concurrent_records must be between 1 and 64")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
