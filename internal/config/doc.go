// Package config provides 12-factor configuration management for the
// traced service.
//
// Configuration is loaded from environment variables with sensible
// defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - Export: Span export pipeline bounds (batching, retries, queue)
//   - Sink: Span sink selection (memory, log, or remote collector)
//   - Downstream: Downstream service location for outbound calls
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - EXPORT_BATCH_SIZE, EXPORT_FLUSH_INTERVAL, EXPORT_RETRY_LIMIT,
//     EXPORT_RETRY_BACKOFF, EXPORT_QUEUE_CAPACITY
//   - SINK_KIND, SINK_ENDPOINT, SINK_TIMEOUT
//   - DOWNSTREAM_URL, DOWNSTREAM_TIMEOUT
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
