// Package httpclient provides the outbound HTTP client used for downstream
// calls, with retries, rate limiting, a circuit breaker, and trace context
// propagation.
package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/vectorbench/traced/internal/resilience"
	"github.com/vectorbench/traced/internal/trace"
)

// Client wraps resty with rate limiting and a circuit breaker for calls to
// downstream services.
type Client struct {
	resty      *resty.Client
	limiter    *rate.Limiter
	breaker    *resilience.Breaker
	propagator *trace.Propagator
}

// New creates a production-ready outbound client. The transport comes from
// retryablehttp so transient connection failures are absorbed below the
// application layer.
func New(timeout time.Duration, propagator *trace.Propagator) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "traced/1.0")
	// StandardClient wraps the retry loop in a RoundTripper, so every resty
	// request goes through retryablehttp's attempts.
	restyClient.SetTransport(retryClient.StandardClient().Transport)

	breaker := resilience.New("downstream", resilience.Config{
		FailureThreshold: 10,
		ResetTimeout:     30 * time.Second,
		HalfOpenProbes:   5,
	})

	return &Client{
		resty:      restyClient,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		breaker:    breaker,
		propagator: propagator,
	}
}

// SetRateLimit bounds outbound requests per second; zero removes the bound.
func (c *Client) SetRateLimit(requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Limit(requestsPerSecond))
	c.limiter.SetBurst(int(requestsPerSecond))
}

// Get performs a GET carrying the given trace context, so the callee joins
// the caller's trace.
func (c *Client) Get(ctx context.Context, url string, tc trace.TraceContext) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetHeader(trace.Header, c.propagator.Inject(tc)).
			Get(url)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*resty.Response), nil
}
