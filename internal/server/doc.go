// Package server provides HTTP server setup and initialization for the
// traced service.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (tracing, metrics, CORS, rate limiting, recovery)
//   - Tracing pipeline construction and ownership
//   - Span sink selection (memory, log, remote collector)
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Build metrics and the tracing pipeline
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal, draining the pipeline
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
