package trace

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SpanKey is the gin context key holding the request's active span.
const SpanKey = "trace.span"

// Middleware instruments every request: it extracts the inbound trace
// context (soft-failing to a new root), starts a span named for the route,
// and ends it on every exit path, including handler panics. Failures inside
// the tracing machinery are logged and never alter the business response.
func Middleware(p *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			span    *Span
			current TraceContext
		)

		// Span setup is fallible machinery; a broken pipeline must not take
		// the request down with it.
		func() {
			defer recoverInstrumentation(p.logger, "span setup")

			parent := p.Propagator.Extract(c.GetHeader(Header))
			span, current = p.Recorder.Start(routeName(c), parent)
			span.SetAttribute("http.method", StringValue(c.Request.Method))
			span.SetAttribute("http.url", StringValue(c.Request.URL.String()))

			c.Set(SpanKey, span)
			c.Request = c.Request.WithContext(ContextWith(c.Request.Context(), current))
			c.Header(Header, p.Propagator.Inject(current))
		}()

		defer func() {
			if span == nil {
				if r := recover(); r != nil {
					panic(r)
				}
				return
			}

			if r := recover(); r != nil {
				// A panic out of the handler chain is a business failure:
				// mark the span, finalize it, and let the recovery
				// middleware shape the response.
				finalize(p, span, StatusError, fmt.Sprintf("panic: %v", r))
				panic(r)
			}

			status := StatusOK
			detail := ""
			if len(c.Errors) > 0 {
				status = StatusError
				detail = c.Errors.Last().Error()
			} else if c.Writer.Status() >= http.StatusInternalServerError {
				status = StatusError
				detail = fmt.Sprintf("http status %d", c.Writer.Status())
			}
			span.SetAttribute("http.status_code", IntValue(int64(c.Writer.Status())))
			finalize(p, span, status, detail)
		}()

		c.Next()
	}
}

// finalize records the outcome and ends the span. End runs even when the
// status recording itself misbehaves, so no span is ever lost on an error
// path.
func finalize(p *Pipeline, span *Span, status Status, detail string) {
	defer recoverInstrumentation(p.logger, "span finalize")

	// End unconditionally once outcome recording is done (or has failed).
	defer p.Recorder.End(span)

	if status == StatusError {
		attrs := map[string]Value{}
		if detail != "" {
			attrs["message"] = StringValue(detail)
		}
		span.AddEvent("request failed", attrs)
	}
	span.SetStatus(status)
}

// SpanFrom returns the active span for the request, if the middleware
// installed one.
func SpanFrom(c *gin.Context) (*Span, bool) {
	value, exists := c.Get(SpanKey)
	if !exists {
		return nil, false
	}
	span, ok := value.(*Span)
	return span, ok
}

// CurrentContext returns the request's trace context, or a fresh root when
// the middleware is not installed, so callers can always propagate
// something coherent.
func CurrentContext(c *gin.Context) TraceContext {
	if tc, ok := FromContext(c.Request.Context()); ok {
		return tc
	}
	return NewRootContext()
}

func routeName(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}

func recoverInstrumentation(logger *zap.Logger, stage string) {
	if r := recover(); r != nil {
		logger.Error("tracing instrumentation failure isolated",
			zap.String("stage", stage),
			zap.Any("panic", r),
		)
	}
}
