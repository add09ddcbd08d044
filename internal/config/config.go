package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	Export     ExportConfig
	Sink       SinkConfig
	Downstream DownstreamConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// ExportConfig bounds the span export pipeline.
type ExportConfig struct {
	BatchSize     int           `envconfig:"EXPORT_BATCH_SIZE" default:"64"`
	FlushInterval time.Duration `envconfig:"EXPORT_FLUSH_INTERVAL" default:"5s"`
	RetryLimit    int           `envconfig:"EXPORT_RETRY_LIMIT" default:"3"`
	RetryBackoff  time.Duration `envconfig:"EXPORT_RETRY_BACKOFF" default:"100ms"`
	QueueCapacity int           `envconfig:"EXPORT_QUEUE_CAPACITY" default:"2048"`
}

// SinkConfig selects where finished spans are shipped.
type SinkConfig struct {
	// Kind is one of "memory", "log", or "http".
	Kind     string        `envconfig:"SINK_KIND" default:"memory"`
	Endpoint string        `envconfig:"SINK_ENDPOINT" default:""`
	Timeout  time.Duration `envconfig:"SINK_TIMEOUT" default:"10s"`
}

// DownstreamConfig locates the downstream service used by /downstream.
type DownstreamConfig struct {
	BaseURL string        `envconfig:"DOWNSTREAM_URL" default:"http://localhost:8000"`
	Timeout time.Duration `envconfig:"DOWNSTREAM_TIMEOUT" default:"10s"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Export.BatchSize <= 0 {
		return fmt.Errorf("EXPORT_BATCH_SIZE must be positive, got %d", c.Export.BatchSize)
	}
	if c.Export.QueueCapacity <= 0 {
		return fmt.Errorf("EXPORT_QUEUE_CAPACITY must be positive, got %d", c.Export.QueueCapacity)
	}
	if c.Export.RetryLimit < 0 {
		return fmt.Errorf("EXPORT_RETRY_LIMIT must not be negative, got %d", c.Export.RetryLimit)
	}
	switch c.Sink.Kind {
	case "memory", "log":
	case "http":
		if c.Sink.Endpoint == "" {
			return fmt.Errorf("SINK_ENDPOINT is required when SINK_KIND is http")
		}
	default:
		return fmt.Errorf("unknown SINK_KIND %q", c.Sink.Kind)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Export: ExportConfig{
			BatchSize:     64,
			FlushInterval: 5 * time.Second,
			RetryLimit:    3,
			RetryBackoff:  100 * time.Millisecond,
			QueueCapacity: 2048,
		},
		Sink: SinkConfig{
			Kind:    "memory",
			Timeout: 10 * time.Second,
		},
		Downstream: DownstreamConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
