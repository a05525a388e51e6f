package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/retry"
)

// Config holds all configuration for sourcesense-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// UploadDir is where uploaded source files are stored before extraction.
	UploadDir string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"./local/uploads"`

	// Connector identity stamped onto extracted metadata
	Connector ConnectorConfig `yaml:"connector"`

	// Pipeline execution settings
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ConnectorConfig identifies the connector instance in qualified names
// and entity audit fields.
type ConnectorConfig struct {
	Name     string `yaml:"name" env:"CONNECTOR_NAME" env-default:"excel-sourcesense"`
	TenantID string `yaml:"tenant_id" env:"CONNECTOR_TENANT_ID" env-default:"default"`
}

// PipelineConfig holds stage retry and run liveness settings.
type PipelineConfig struct {
	// StageAttempts is the total attempts per stage (first try + retries).
	StageAttempts int `yaml:"stage_attempts" env:"PIPELINE_STAGE_ATTEMPTS" env-default:"3"`
	// InitialBackoffMs is the delay before the first retry.
	InitialBackoffMs int `yaml:"initial_backoff_ms" env:"PIPELINE_INITIAL_BACKOFF_MS" env-default:"100"`
	// MaxBackoffMs caps the exponential backoff delay.
	MaxBackoffMs int `yaml:"max_backoff_ms" env:"PIPELINE_MAX_BACKOFF_MS" env-default:"5000"`
	// HeartbeatIntervalSeconds is how often a running pipeline stamps its
	// liveness on the run record.
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds" env:"PIPELINE_HEARTBEAT_INTERVAL_SECONDS" env-default:"30"`
}

// RetryConfig converts the pipeline settings into a retry.Config.
func (p *PipelineConfig) RetryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	if p.StageAttempts > 0 {
		cfg.MaxRetries = p.StageAttempts - 1
	}
	if p.InitialBackoffMs > 0 {
		cfg.InitialDelay = time.Duration(p.InitialBackoffMs) * time.Millisecond
	}
	if p.MaxBackoffMs > 0 {
		cfg.MaxDelay = time.Duration(p.MaxBackoffMs) * time.Millisecond
	}
	return cfg
}

// HeartbeatInterval returns the run heartbeat period.
func (p *PipelineConfig) HeartbeatInterval() time.Duration {
	if p.HeartbeatIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.HeartbeatIntervalSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// A missing config.yaml is not an error; environment variables and defaults apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	return cfg, nil
}
