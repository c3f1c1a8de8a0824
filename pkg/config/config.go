// Package config loads jsonparams settings from YAML.
//
// Values missing from the file keep their Default() value; CLI flags are
// applied on top by the caller.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/duration"
)

// Config is the root of a jsonparams configuration file.
type Config struct {
	// ScanNullValues reports explicit nulls as injectable params.
	ScanNullValues bool `yaml:"scan_null_values"`

	// MaxBodySize rejects larger bodies before parsing (bytes).
	MaxBodySize int `yaml:"max_body_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Scan      Scan      `yaml:"scan"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Scan configures the active scanner.
type Scan struct {
	Concurrency int           `yaml:"concurrency"`
	RateLimit   float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	Proxy       string        `yaml:"proxy"` // http://, https:// or socks5:// URL
	SkipVerify  bool          `yaml:"skip_verify"`

	// Rules lists the enabled rule IDs. Empty enables all of them.
	Rules []int `yaml:"rules"`

	// PluginDir is searched for rule plugins (*.so).
	PluginDir string `yaml:"plugin_dir"`

	// PluginConfig is passed to every plugin rule's Init.
	PluginConfig map[string]any `yaml:"plugin_config"`
}

// Telemetry configures metrics and tracing.
type Telemetry struct {
	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`

	// OTelEndpoint is an OTLP gRPC collector address. Empty disables tracing.
	OTelEndpoint string `yaml:"otel_endpoint"`
	OTelInsecure bool   `yaml:"otel_insecure"`
	ServiceName  string `yaml:"service_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ScanNullValues: false,
		MaxBodySize:    defaults.MaxBodySize,
		LogLevel:       "info",
		Scan: Scan{
			Concurrency: defaults.Concurrency,
			RateLimit:   defaults.RateLimit,
			Timeout:     duration.HTTPScanning,
			UserAgent:   defaults.UAMinimal,
		},
		Telemetry: Telemetry{
			OTelInsecure: true,
			ServiceName:  defaults.ServiceName,
		},
	}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("%w: max_body_size must be positive, got %d", ErrInvalidConfig, c.MaxBodySize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Scan.Concurrency < 1 || c.Scan.Concurrency > defaults.ConcurrencyMax {
		return fmt.Errorf("%w: scan.concurrency must be 1-%d, got %d", ErrInvalidConfig, defaults.ConcurrencyMax, c.Scan.Concurrency)
	}
	if c.Scan.RateLimit < 0 {
		return fmt.Errorf("%w: scan.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("%w: scan.timeout must be positive", ErrInvalidConfig)
	}
	if c.Telemetry.OTelEndpoint != "" && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("%w: telemetry.service_name", ErrMissingRequired)
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, s)
}
