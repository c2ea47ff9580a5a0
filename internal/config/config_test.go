package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("applies defaults to omitted fields", func(t *testing.T) {
		path := writeFile(t, "service:\n  base_url: http://refiner.local:9000\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "http://refiner.local:9000", cfg.Service.BaseURL)
		assert.Equal(t, 120, cfg.Service.TimeoutSeconds)
		assert.Equal(t, 5, cfg.Service.BreakerMaxFailures)
		assert.Equal(t, "./output", cfg.Export.OutputDir)
		assert.Equal(t, 2, cfg.Export.RetryCount)
		assert.Empty(t, cfg.Telemetry.TraceFile)
		assert.Empty(t, cfg.Telemetry.MetricsFile)
		assert.Equal(t, 30, cfg.Telemetry.MetricsIntervalSeconds)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		path := writeFile(t, `
service:
  base_url: https://refiner.example.com
  timeout_seconds: 10
export:
  output_dir: /tmp/exports
  retry_count: 4
telemetry:
  trace_file: traces.json
  metrics_file: metrics.json
  metrics_interval_seconds: 5
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 10, cfg.Service.TimeoutSeconds)
		assert.Equal(t, "/tmp/exports", cfg.Export.OutputDir)
		assert.Equal(t, 4, cfg.Export.RetryCount)
		assert.Equal(t, "traces.json", cfg.Telemetry.TraceFile)
		assert.Equal(t, "metrics.json", cfg.Telemetry.MetricsFile)
		assert.Equal(t, 5, cfg.Telemetry.MetricsIntervalSeconds)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "service: [unterminated")
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("missing base url", func(t *testing.T) {
		path := writeFile(t, "export:\n  output_dir: out\n")
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "service base URL is required")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.Service.BaseURL = "ftp://refiner" },
			wantErr: "unsupported service URL scheme",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Service.TimeoutSeconds = -1 },
			wantErr: "timeout must not be negative",
		},
		{
			name:    "zero retry count",
			mutate:  func(c *Config) { c.Export.RetryCount = 0 },
			wantErr: "retry count must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteConfig(Default(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
