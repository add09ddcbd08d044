// Package main is the entry point for the traced demo service.
//
// The server wires the tracing pipeline (propagator, recorder, batching
// exporter) into a Gin HTTP surface so every request produces a span that
// flows through the export path.
//
// Architecture:
//
//	Client → Gin router → trace middleware → handlers
//	                            ↓
//	                    recorder → exporter → sink (memory|log|http)
//
// The server provides:
//   - Instrumented demo routes (/, /error, /downstream, /echo/:trace_id)
//   - Span inspection endpoint (/spans, memory sink only)
//   - Prometheus metrics (/metrics) and health (/health)
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - Defaults for development
//
// Usage:
//
//	PORT=8000 SINK_KIND=memory ./server
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown (flushes pending spans)
package main
