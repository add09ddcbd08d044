package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/vectorbench/traced/internal/api/http"
	"github.com/vectorbench/traced/internal/api/middleware"
	"github.com/vectorbench/traced/internal/config"
	"github.com/vectorbench/traced/internal/httpclient"
	"github.com/vectorbench/traced/internal/logging"
	"github.com/vectorbench/traced/internal/monitoring"
	"github.com/vectorbench/traced/internal/trace"
)

// Server wraps the HTTP server and the tracing pipeline it owns.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	pipeline *trace.Pipeline
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// New builds a fully wired server: logger, metrics, tracing pipeline, sink,
// middleware stack, and routes. The tracing pipeline's lifecycle belongs to
// this server; Close shuts it down.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	logger.Info("Initializing traced server",
		zap.String("port", cfg.Server.Port),
		zap.String("sink", cfg.Sink.Kind),
	)

	metrics := monitoring.NewMetrics()

	sink, memorySink, err := buildSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	pipeline := trace.NewPipeline(trace.ExporterConfig{
		BatchSize:     cfg.Export.BatchSize,
		FlushInterval: cfg.Export.FlushInterval,
		RetryLimit:    cfg.Export.RetryLimit,
		RetryBackoff:  cfg.Export.RetryBackoff,
		QueueCapacity: cfg.Export.QueueCapacity,
	}, sink, logger.Logger).WithMetrics(metrics)
	logger.Info("Tracing pipeline initialized",
		zap.Int("batch_size", cfg.Export.BatchSize),
		zap.Int("queue_capacity", cfg.Export.QueueCapacity),
	)

	downstream := httpclient.New(cfg.Downstream.Timeout, pipeline.Propagator)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(trace.Middleware(pipeline))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(pipeline, memorySink, downstream, cfg.Downstream.BaseURL, logger)

	router.GET("/", handlers.Root)
	router.GET("/error", handlers.Error)
	router.GET("/downstream", handlers.Downstream)
	router.GET("/echo/:trace_id", handlers.Echo)
	router.GET("/spans", handlers.Spans)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry(),
		promhttp.HandlerOpts{},
	)))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		pipeline: pipeline,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// buildSink selects the span sink from configuration.
func buildSink(cfg *config.Config, logger *logging.Logger) (trace.Sink, *trace.MemorySink, error) {
	switch cfg.Sink.Kind {
	case "memory":
		sink := trace.NewMemorySink()
		return sink, sink, nil
	case "log":
		return trace.NewLogSink(logger.Logger), nil, nil
	case "http":
		return trace.NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Timeout), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the HTTP listener and drains the tracing
// pipeline within a bounded timeout.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}

	report := s.pipeline.Shutdown(ctx)
	s.logger.Info("Server stopped",
		zap.Int("spans_flushed", report.Flushed),
		zap.Int("spans_dropped", report.Dropped),
	)
	return nil
}
