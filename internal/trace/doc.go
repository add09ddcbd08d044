/*
Package trace implements the service's distributed tracing pipeline: span
lifecycle, trace context propagation across HTTP boundaries, and
asynchronous failure-isolated export of finished spans.

# Overview

The pipeline is built explicitly at startup and passed by handle; there is
no global tracer. Inbound requests flow through the gin middleware, which
extracts the upstream trace context, starts a span for the route, and ends
it on every exit path. Finished spans are handed to a bounded-queue
exporter drained by a single background worker, so nothing on the request
path ever waits on sink I/O.

# Usage

	sink := trace.NewMemorySink()
	pipeline := trace.NewPipeline(trace.DefaultExporterConfig(), sink, logger).
		WithMetrics(metrics)
	defer pipeline.Shutdown(ctx)

	router.Use(trace.Middleware(pipeline))

	// Inside a handler: continue the trace on an outbound call.
	tc := trace.CurrentContext(c)
	req.SetHeader(trace.Header, pipeline.Propagator.Inject(tc))

# Wire format

Trace context travels in a single header:

	X-Trace-Context: <32 hex trace_id>-<16 hex span_id>-<1 digit sampled>

A missing or malformed header starts a fresh root trace; propagation
problems never fail a request.

# Failure isolation

Tracing failures are invisible to callers. Export errors are retried with
exponential backoff up to a configured limit and then dropped with an
accounted, logged reason. Instrumentation panics are recovered at the
middleware boundary. Only the wrapped handler's own errors shape responses.
*/
package trace
