// Package config loads collector settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fabtools/card-collector/pkg/catalog"
	"github.com/fabtools/card-collector/pkg/pacer"
)

// Environment variables recognized by the collector.
const (
	configPathEnv   = "CARD_COLLECTOR_CONFIG"
	baseURLEnv      = "CATALOG_BASE_URL"
	userAgentEnv    = "CATALOG_USER_AGENT"
	setCodesFileEnv = "SET_CODES_FILE"
	outputDirEnv    = "OUTPUT_DIR"
	pacingEnv       = "PACING_INTERVAL"
	logLevelEnv     = "LOG_LEVEL"
)

// Duration wraps time.Duration so YAML values like "500ms" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all collector settings.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Pacing  PacingConfig  `yaml:"pacing"`
	Retry   RetryConfig   `yaml:"retry"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig describes the remote catalog endpoint.
type APIConfig struct {
	BaseURL   string   `yaml:"baseUrl"`
	UserAgent string   `yaml:"userAgent"`
	Timeout   Duration `yaml:"timeout"`
	MaxPages  int      `yaml:"maxPages"`
}

// PacingConfig bounds the outbound request rate.
type PacingConfig struct {
	Interval Duration `yaml:"interval"`
}

// RetryConfig configures the optional fetch retry decorator. The default
// of one attempt means no retry.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"maxAttempts"`
	InitialBackoff Duration `yaml:"initialBackoff"`
}

// InputConfig names the set code list.
type InputConfig struct {
	SetCodesFile string `yaml:"setCodesFile"`
}

// OutputConfig names the destination directory for artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads YAML configuration (if CARD_COLLECTOR_CONFIG is set) and
// applies environment overrides on top of the defaults.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = applyDefaults(cfg)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Default returns the configuration matching the catalog's public
// endpoint and the collector's conventional file layout.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   catalog.DefaultBaseURL,
			UserAgent: "card-collector/1.0",
			Timeout:   Duration(30 * time.Second),
			MaxPages:  100,
		},
		Pacing: PacingConfig{Interval: Duration(pacer.DefaultInterval)},
		Retry: RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: Duration(2 * time.Second),
		},
		Input:   InputConfig{SetCodesFile: "sets_codes.txt"},
		Output:  OutputConfig{Dir: "set_data"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// applyDefaults backfills fields a partial YAML file left zero.
func applyDefaults(cfg Config) Config {
	def := Default()

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = def.API.UserAgent
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = def.API.Timeout
	}
	if cfg.API.MaxPages <= 0 {
		cfg.API.MaxPages = def.API.MaxPages
	}
	if cfg.Pacing.Interval <= 0 {
		cfg.Pacing.Interval = def.Pacing.Interval
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = def.Retry.InitialBackoff
	}
	if cfg.Input.SetCodesFile == "" {
		cfg.Input.SetCodesFile = def.Input.SetCodesFile
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = def.Output.Dir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(baseURLEnv); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(userAgentEnv); v != "" {
		c.API.UserAgent = v
	}
	if v := os.Getenv(setCodesFileEnv); v != "" {
		c.Input.SetCodesFile = v
	}
	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(pacingEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Pacing.Interval = Duration(d)
		}
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}
