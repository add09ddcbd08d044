package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestPipeline() (*Pipeline, *MemorySink) {
	sink := NewMemorySink()
	pipeline := NewPipeline(idleConfig(), sink, zap.NewNop())
	return pipeline, sink
}

func flushSpans(p *Pipeline, sink *MemorySink) []*Span {
	p.ForceFlush(context.Background())
	return sink.Spans()
}

func TestMiddlewareRecordsSpanPerRequest(t *testing.T) {
	pipeline, sink := newTestPipeline()
	defer pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(Middleware(pipeline))
	router.GET("/hello", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "hi"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	spans := flushSpans(pipeline, sink)
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "/hello", span.Name)
	assert.Equal(t, StatusOK, span.Status())
	assert.True(t, span.Ended())
	assert.Equal(t, "GET", span.Attributes["http.method"].Any())
	assert.Equal(t, int64(200), span.Attributes["http.status_code"].Any())
	assert.True(t, span.Context().IsValid())
}

func TestMiddlewareContinuesInboundTrace(t *testing.T) {
	pipeline, sink := newTestPipeline()
	defer pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(Middleware(pipeline))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-1")
	router.ServeHTTP(w, req)

	spans := flushSpans(pipeline, sink)
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, TraceID("4bf92f3577b34da6a3ce929d0e0e4736"), span.TraceID)
	assert.Equal(t, SpanID("00f067aa0ba902b7"), span.ParentSpanID)
	assert.NotEqual(t, SpanID("00f067aa0ba902b7"), span.SpanID)
}

func TestMiddlewareMalformedHeaderStartsFreshRoot(t *testing.T) {
	pipeline, sink := newTestPipeline()
	defer pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(Middleware(pipeline))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "definitely-not-a-trace")
	router.ServeHTTP(w, req)

	// Malformed propagation never fails the request.
	assert.Equal(t, http.StatusOK, w.Code)

	spans := flushSpans(pipeline, sink)
	require.Len(t, spans, 1)
	assert.True(t, spans[0].TraceID.IsValid())
	assert.True(t, spans[0].ParentSpanID.IsValid(), "parent is the fresh root context's span")
}

func TestMiddlewareSpanSurvivesHandlerPanic(t *testing.T) {
	pipeline, sink := newTestPipeline()
	defer pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Middleware(pipeline))
	router.GET("/boom", func(c *gin.Context) {
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	// The panic is a business failure: recovery shapes the response, and
	// the span still reaches the exporter exactly once.
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	spans := flushSpans(pipeline, sink)
	require.Len(t, spans, 1)
	assert.Equal(t, StatusError, spans[0].Status())
	assert.True(t, spans[0].Ended())
}

func TestMiddlewareHandlerErrorMarksSpan(t *testing.T) {
	pipeline, sink := newTestPipeline()
	defer pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(Middleware(pipeline))
	router.GET("/flaky", func(c *gin.Context) {
		c.Error(assert.AnError)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/flaky", nil)
	router.ServeHTTP(w, req)

	// The business outcome (200) and the span status (ERROR) are
	// independently controlled.
	assert.Equal(t, http.StatusOK, w.Code)

	spans := flushSpans(pipeline, sink)
	require.Len(t, spans, 1)
	assert.Equal(t, StatusError, spans[0].Status())
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "request failed", spans[0].Events[0].Name)
}

func TestMiddlewareIsolatesExporterFailure(t *testing.T) {
	pipeline, _ := newTestPipeline()

	// A dead exporter must be invisible to callers.
	pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(Middleware(pipeline))
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMiddlewareSetsResponseHeader(t *testing.T) {
	pipeline, sink := newTestPipeline()
	defer pipeline.Shutdown(context.Background())

	router := gin.New()
	router.Use(Middleware(pipeline))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	header := w.Header().Get(Header)
	require.NotEmpty(t, header)

	tc := pipeline.Propagator.Extract(header)
	spans := flushSpans(pipeline, sink)
	require.Len(t, spans, 1)
	assert.Equal(t, spans[0].TraceID, tc.TraceID)
	assert.Equal(t, spans[0].SpanID, tc.SpanID)
}

func TestCurrentContextWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	tc := CurrentContext(c)
	assert.True(t, tc.IsValid(), "callers always get something coherent to propagate")
	assert.True(t, tc.IsRoot())
}
