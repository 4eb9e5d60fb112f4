package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/quote-saver/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

const (
	// instrumentationName is used for OpenTelemetry tracer and meter.
	instrumentationName = "github.com/jsamuelsen/quote-saver/internal/adapters/clients"

	// httpStatusCategoryDivisor divides status code to get category (2xx, 4xx, 5xx).
	httpStatusCategoryDivisor = 100

	// defaultTimeout is the per-attempt timeout when none is configured.
	defaultTimeout = 10 * time.Second
)

// Config configures an HTTP client instance.
type Config struct {
	// BaseURL is the base URL for all requests (e.g. "http://localhost:5000").
	BaseURL string

	// ServiceName identifies the downstream service for logging and tracing.
	ServiceName string

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration

	// Retry configures retry behavior. Only idempotent methods are retried.
	Retry config.RetryConfig

	// Circuit configures circuit breaker behavior.
	Circuit config.CircuitBreakerConfig

	// Transport configures the connection pool.
	Transport config.TransportConfig

	// RateLimit throttles outgoing requests when enabled.
	RateLimit config.RateLimitConfig

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client

	// Logger is an optional logger. If nil, slog.Default is used.
	Logger *slog.Logger
}

// RequestOption customizes a single outgoing request.
type RequestOption func(*http.Request)

// WithBearerToken sets the Authorization header for one request.
func WithBearerToken(token string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// WithHeader sets an arbitrary header for one request.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// Client is an instrumented HTTP client for downstream services. Every request
// passes the rate limiter and circuit breaker, carries request and correlation
// IDs plus trace context, and is recorded as a span and in metrics.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	cfg         *Config
	logger      *slog.Logger
	cb          *CircuitBreaker
	limiter     *rate.Limiter

	tracer trace.Tracer

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New creates a new instrumented HTTP client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   max(cfg.Circuit.MaxFailures, 1),
		Timeout:       cfg.Circuit.Timeout,
		HalfOpenLimit: max(cfg.Circuit.HalfOpenLimit, 1),
	})

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", cfg.ServiceName),
	)

	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of HTTP client requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(cfg.Transport),
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(cfg.RateLimit.Burst, 1))
	}

	return &Client{
		http:            httpClient,
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName:     cfg.ServiceName,
		cfg:             cfg,
		logger:          logger,
		cb:              cb,
		limiter:         limiter,
		tracer:          otel.Tracer(instrumentationName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default is always *http.Transport

	if cfg.MaxIdleConns > 0 {
		t.MaxIdleConns = cfg.MaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}

	if cfg.IdleConnTimeout > 0 {
		t.IdleConnTimeout = cfg.IdleConnTimeout
	}

	return t
}

// Do executes an HTTP request with rate limiting, circuit breaking, retries,
// tracing and logging. Non-idempotent requests are attempted exactly once.
// A 5xx answer on the final attempt is returned as a response, not an error,
// so callers can inspect the status.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.serviceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.recordMetrics(ctx, req.Method, 0, time.Since(startTime), "circuit_open")
		logger.Warn("request blocked by circuit breaker",
			slog.Duration("retry_after", c.cb.RetryAfter()),
		)

		return nil, ErrCircuitOpen
	}

	c.injectHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, c.serviceName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, lastErr := c.executeWithRetry(ctx, req, logger)

	return c.recordResult(ctx, req, resp, lastErr, span, logger, startTime)
}

// errServerStatus marks a 5xx answer on an attempt that will be retried.
type errServerStatus int

func (e errServerStatus) Error() string { return fmt.Sprintf("server error: %d", int(e)) }

// executeWithRetry sends req, retrying idempotent methods on network errors
// and 5xx answers with exponential backoff. A 5xx on the last attempt is
// returned as a response.
func (c *Client) executeWithRetry(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	tries := uint(1)
	if isIdempotent(req.Method) {
		tries = uint(c.cfg.Retry.MaxAttempts)
	}

	var attempt uint

	send := func() (*http.Response, error) {
		attempt++

		if attempt > 1 {
			if err := rewindBody(req); err != nil {
				return nil, backoff.Permanent(err)
			}
		}

		if err := c.waitForToken(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		resp, err := c.http.Do(req.WithContext(ctx))

		switch {
		case err != nil:
			if !isRetryableError(err) {
				return nil, backoff.Permanent(err)
			}

			return nil, err
		case resp.StatusCode >= http.StatusInternalServerError && attempt < tries:
			drainAndClose(resp, logger)
			return nil, errServerStatus(resp.StatusCode)
		default:
			return resp, nil
		}
	}

	resp, err := backoff.Retry(ctx, send,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug("retrying request",
				slog.Uint64("attempt", uint64(attempt)+1),
				slog.Duration("backoff", wait),
				slog.Any("error", err),
			)
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	return resp, err
}

// newBackOff builds the retry schedule from RetryConfig; zero fields keep
// the library defaults.
func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	r := c.cfg.Retry

	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}

	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}

	if r.Multiplier > 0 {
		b.Multiplier = r.Multiplier
	}

	b.RandomizationFactor = r.JitterFactor
	b.Reset()

	return b
}

func rewindBody(req *http.Request) error {
	if req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}

	req.Body = body

	return nil
}

func (c *Client) waitForToken(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	return nil
}

// recordResult records the final result and updates metrics and the circuit breaker.
func (c *Client) recordResult(ctx context.Context, req *http.Request, resp *http.Response, lastErr error, span trace.Span, logger *slog.Logger, startTime time.Time) (*http.Response, error) {
	duration := time.Since(startTime)

	if lastErr != nil {
		span.SetStatus(codes.Error, lastErr.Error())
		c.recordMetrics(ctx, req.Method, 0, duration, "error")
		logger.Warn("request failed",
			slog.Duration("duration", duration),
			slog.Any("error", lastErr),
		)

		// Throttling and caller cancellation say nothing about the service's health.
		if errors.Is(lastErr, ErrRateLimited) || ctx.Err() != nil {
			return nil, lastErr
		}

		c.cb.RecordFailure()

		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, lastErr)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.cb.RecordFailure()
	} else {
		c.cb.RecordSuccess()
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	statusCategory := fmt.Sprintf("%dxx", resp.StatusCode/httpStatusCategoryDivisor)
	c.recordMetrics(ctx, req.Method, resp.StatusCode, duration, statusCategory)

	logger.Debug("request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

// Get performs an HTTP GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, path, http.NoBody, opts)
}

// Post performs an HTTP POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body io.Reader, opts ...RequestOption) (*http.Response, error) {
	opts = append([]RequestOption{WithHeader("Content-Type", "application/json")}, opts...)
	return c.send(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, opts []RequestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	return c.Do(ctx, req)
}

// CircuitState returns the current state of the circuit breaker.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

// ServiceName returns the downstream service name.
func (c *Client) ServiceName() string {
	return c.serviceName
}

// injectHeaders forwards the dashboard request and correlation IDs.
func (c *Client) injectHeaders(ctx context.Context, req *http.Request) {
	middleware.ForwardIDs(ctx, req.Header)
}

// buildURL constructs the full URL from base URL and path.
func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// recordMetrics records request metrics.
func (c *Client) recordMetrics(ctx context.Context, method string, statusCode int, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.serviceName),
		attribute.String("result", result),
	}

	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	c.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func drainAndClose(resp *http.Response, logger *slog.Logger) {
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := resp.Body.Close(); err != nil {
		logger.Debug("failed to close response body", slog.Any("error", err))
	}
}

// isIdempotent reports whether a method is safe to send more than once.
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// isRetryableError determines if an error is retryable.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
