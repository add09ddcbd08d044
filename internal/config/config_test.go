package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Export config
	assert.Equal(t, 64, cfg.Export.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Export.FlushInterval)
	assert.Equal(t, 3, cfg.Export.RetryLimit)
	assert.Equal(t, 2048, cfg.Export.QueueCapacity)

	// Sink config
	assert.Equal(t, "memory", cfg.Sink.Kind)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"EXPORT_BATCH_SIZE":     "16",
		"EXPORT_FLUSH_INTERVAL": "250ms",
		"EXPORT_RETRY_LIMIT":    "5",
		"EXPORT_QUEUE_CAPACITY": "10",
		"SINK_KIND":             "http",
		"SINK_ENDPOINT":         "http://collector:4318/v1/traces",
		"DOWNSTREAM_URL":        "http://downstream:8000",
		"RATE_LIMIT_RPS":        "500",
		"RATE_LIMIT_BURST":      "1000",
		"RATE_LIMIT_ENABLED":    "false",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// Verify server config
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Verify logging config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	// Verify export config
	assert.Equal(t, 16, cfg.Export.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Export.FlushInterval)
	assert.Equal(t, 5, cfg.Export.RetryLimit)
	assert.Equal(t, 10, cfg.Export.QueueCapacity)

	// Verify sink config
	assert.Equal(t, "http", cfg.Sink.Kind)
	assert.Equal(t, "http://collector:4318/v1/traces", cfg.Sink.Endpoint)

	// Verify downstream config
	assert.Equal(t, "http://downstream:8000", cfg.Downstream.BaseURL)

	// Verify rate limit config
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("PORT")

	err = os.Setenv("EXPORT_QUEUE_CAPACITY", "512")
	require.NoError(t, err)
	defer os.Unsetenv("EXPORT_QUEUE_CAPACITY")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 512, cfg.Export.QueueCapacity)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 64, cfg.Export.BatchSize)
	assert.Equal(t, "memory", cfg.Sink.Kind)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(*Config) {},
		},
		{
			name: "rejects zero batch size",
			mutate: func(c *Config) {
				c.Export.BatchSize = 0
			},
			wantErr: "EXPORT_BATCH_SIZE",
		},
		{
			name: "rejects zero queue capacity",
			mutate: func(c *Config) {
				c.Export.QueueCapacity = 0
			},
			wantErr: "EXPORT_QUEUE_CAPACITY",
		},
		{
			name: "rejects negative retry limit",
			mutate: func(c *Config) {
				c.Export.RetryLimit = -1
			},
			wantErr: "EXPORT_RETRY_LIMIT",
		},
		{
			name: "rejects http sink without endpoint",
			mutate: func(c *Config) {
				c.Sink.Kind = "http"
				c.Sink.Endpoint = ""
			},
			wantErr: "SINK_ENDPOINT",
		},
		{
			name: "rejects unknown sink kind",
			mutate: func(c *Config) {
				c.Sink.Kind = "kafka"
			},
			wantErr: "SINK_KIND",
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
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
