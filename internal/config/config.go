package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the application configuration
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Export     ExportConfig     `yaml:"export"`
	Processing ProcessingConfig `yaml:"processing"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServiceConfig represents the analysis service configuration
type ServiceConfig struct {
	BaseURL            string `yaml:"base_url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	BreakerMaxFailures int    `yaml:"breaker_max_failures"`
	BreakerOpenSeconds int    `yaml:"breaker_open_seconds"`
}

// ExportConfig represents document export configuration
type ExportConfig struct {
	OutputDir         string `yaml:"output_dir"`
	RetryCount        int    `yaml:"retry_count"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
}

// ProcessingConfig represents processing configuration
type ProcessingConfig struct {
	OutputDir  string `yaml:"output_dir"`
	SaveReport bool   `yaml:"save_report"`
}

// TelemetryConfig represents tracing and metrics configuration. An empty
// path disables that signal.
type TelemetryConfig struct {
	TraceFile              string `yaml:"trace_file"`
	MetricsFile            string `yaml:"metrics_file"`
	MetricsIntervalSeconds int    `yaml:"metrics_interval_seconds"`
}

// Default returns a configuration pointing at a locally running service
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:            "http://127.0.0.1:8000",
			TimeoutSeconds:     120,
			BreakerMaxFailures: 5,
			BreakerOpenSeconds: 30,
		},
		Export: ExportConfig{
			OutputDir:         "./output",
			RetryCount:        2,
			RetryDelaySeconds: 1,
		},
		Processing: ProcessingConfig{
			OutputDir:  "./output",
			SaveReport: true,
		},
		Telemetry: TelemetryConfig{
			MetricsIntervalSeconds: 30,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// WriteConfig writes the configuration as YAML, readable only by the owner
func WriteConfig(config *Config, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills in zero values left out of the file
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Service.TimeoutSeconds == 0 {
		c.Service.TimeoutSeconds = defaults.Service.TimeoutSeconds
	}
	if c.Service.BreakerMaxFailures == 0 {
		c.Service.BreakerMaxFailures = defaults.Service.BreakerMaxFailures
	}
	if c.Service.BreakerOpenSeconds == 0 {
		c.Service.BreakerOpenSeconds = defaults.Service.BreakerOpenSeconds
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.Export.RetryCount == 0 {
		c.Export.RetryCount = defaults.Export.RetryCount
	}
	if c.Processing.OutputDir == "" {
		c.Processing.OutputDir = defaults.Processing.OutputDir
	}
	if c.Telemetry.MetricsIntervalSeconds == 0 {
		c.Telemetry.MetricsIntervalSeconds = defaults.Telemetry.MetricsIntervalSeconds
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service base URL is required")
	}

	u, err := url.Parse(c.Service.BaseURL)
	if err != nil {
		return fmt.Errorf("service base URL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported service URL scheme: %q", u.Scheme)
	}

	if c.Service.TimeoutSeconds < 0 {
		return fmt.Errorf("service timeout must not be negative")
	}

	if c.Export.RetryCount < 1 {
		return fmt.Errorf("export retry count must be at least 1")
	}

	if c.Telemetry.MetricsIntervalSeconds < 0 {
		return fmt.Errorf("metrics interval must not be negative")
	}

	return nil
}
