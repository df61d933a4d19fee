package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory and next to the executable.
const DefaultConfigFile = "mimir.yml"

// Config is the root configuration.
type Config struct {
	Mimir MimirConfig `yaml:"mimir"`
}

// MimirConfig is the project configuration.
type MimirConfig struct {
	Results   ResultsConfig   `yaml:"results"`
	Rules     RulesConfig     `yaml:"rules"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ResultsConfig selects where assessment records are read from.
type ResultsConfig struct {
	Source string           `yaml:"source"` // http|redis|file
	HTTP   HTTPSourceConfig `yaml:"http"`
	Redis  RedisConfig      `yaml:"redis"`
	File   FileConfig       `yaml:"file"`
}

// HTTPSourceConfig configures the results endpoint client.
type HTTPSourceConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// RedisConfig controls Redis access for the assessment store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	Limit     int64  `yaml:"limit"`
}

// FileConfig points at a local JSON or JSONL file.
type FileConfig struct {
	Path string `yaml:"path"`
}

// RulesConfig controls Sigma evidence rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DashboardConfig controls the dashboard views.
type DashboardConfig struct {
	Listen   string `yaml:"listen"`
	PageSize int    `yaml:"page_size"`
}

// IngestConfig controls the Pub/Sub push receiver and results endpoint.
type IngestConfig struct {
	Listen       string `yaml:"listen"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	ResultsLimit int64  `yaml:"results_limit"`
	Retention    int64  `yaml:"retention"`
}

// MetricsConfig controls the Prometheus handler.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	return &cfg, nil
}

// Load reads the config at path when it exists, then applies .env and
// environment overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			cfg = loaded
		case os.IsNotExist(err):
		default:
			return nil, err
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	ApplyEnv(cfg)
	ApplyDefaults(cfg)
	return cfg, nil
}

// FindConfigFile resolves the config path: explicit argument, working directory,
// then the executable's directory.
func FindConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
	}

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), DefaultConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if configArg != "" {
		return configArg
	}
	return DefaultConfigFile
}

// ApplyEnv overrides config values from MIMIR_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MIMIR_RESULTS_SOURCE")); v != "" {
		cfg.Mimir.Results.Source = v
	}
	if v := strings.TrimSpace(os.Getenv("MIMIR_RESULTS_URL")); v != "" {
		cfg.Mimir.Results.HTTP.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("MIMIR_RESULTS_FILE")); v != "" {
		cfg.Mimir.Results.File.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("MIMIR_REDIS_ADDR")); v != "" {
		cfg.Mimir.Results.Redis.Addr = v
	}
	if v := os.Getenv("MIMIR_REDIS_PASSWORD"); v != "" {
		cfg.Mimir.Results.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("MIMIR_REDIS_DB")); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Mimir.Results.Redis.DB = db
		}
	}
	if v := strings.TrimSpace(os.Getenv("MIMIR_LOG_LEVEL")); v != "" {
		cfg.Mimir.Logging.Enabled = true
		cfg.Mimir.Logging.Level = v
	}
}

// ApplyDefaults fills unset values.
func ApplyDefaults(cfg *Config) {
	m := &cfg.Mimir

	if m.Results.Source == "" {
		m.Results.Source = "http"
	}
	if m.Results.HTTP.URL == "" {
		m.Results.HTTP.URL = "http://127.0.0.1:8080/api/results"
	}
	if m.Results.HTTP.Timeout <= 0 {
		m.Results.HTTP.Timeout = 10 * time.Second
	}
	if m.Results.Redis.Addr == "" {
		m.Results.Redis.Addr = "127.0.0.1:6379"
	}
	if m.Results.Redis.KeyPrefix == "" {
		m.Results.Redis.KeyPrefix = "mimir:assessments"
	}
	if m.Results.Redis.Limit <= 0 {
		m.Results.Redis.Limit = 5
	}
	if m.Results.File.Path == "" {
		m.Results.File.Path = "output/results.json"
	}

	if m.Dashboard.Listen == "" {
		m.Dashboard.Listen = "127.0.0.1:8090"
	}
	if m.Dashboard.PageSize <= 0 {
		m.Dashboard.PageSize = 5
	}

	if m.Ingest.Listen == "" {
		m.Ingest.Listen = "0.0.0.0:8080"
	}
	if m.Ingest.MaxBodyBytes <= 0 {
		m.Ingest.MaxBodyBytes = 1 << 20
	}
	if m.Ingest.ResultsLimit <= 0 {
		m.Ingest.ResultsLimit = 5
	}
	if m.Ingest.Retention <= 0 {
		m.Ingest.Retention = 500
	}

	if m.Metrics.Path == "" {
		m.Metrics.Path = "/metrics"
	}

	if m.Logging.Level == "" {
		m.Logging.Level = "info"
	}
}
