package clients

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-saver/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
)

func defaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		ServiceName: "quotes-service",
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := defaultConfig(server.URL)
	for _, m := range mutate {
		m(cfg)
	}

	client, err := New(cfg)
	require.NoError(t, err)

	return client
}

// closeBody is a test helper that closes the response body and fails the test on error.
func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Errorf("failed to close response body: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "config is required")

	cfg := defaultConfig("http://localhost:5000")
	cfg.ServiceName = ""

	_, err = New(cfg)
	require.ErrorContains(t, err, "service name is required")
}

func TestNew_Defaults(t *testing.T) {
	cfg := &Config{BaseURL: "http://localhost:5000/", ServiceName: "quotes-service"}

	client, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", client.baseURL)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.Nil(t, client.limiter)
	assert.Equal(t, "quotes-service", client.ServiceName())
}

func TestNewTransport(t *testing.T) {
	tr := newTransport(config.TransportConfig{
		MaxIdleConns:        7,
		MaxIdleConnsPerHost: 3,
		IdleConnTimeout:     42 * time.Second,
	})

	assert.Equal(t, 7, tr.MaxIdleConns)
	assert.Equal(t, 3, tr.MaxIdleConnsPerHost)
	assert.Equal(t, 42*time.Second, tr.IdleConnTimeout)
}

func TestClient_HeaderPropagation(t *testing.T) {
	var got http.Header

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	})

	ctx := middleware.ContextWithRequestID(context.Background(), "req-123")
	ctx = middleware.ContextWithCorrelationID(ctx, "corr-456")

	resp, err := client.Get(ctx, "/quotes", WithBearerToken("tok1"))
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, "req-123", got.Get(middleware.HeaderRequestID))
	assert.Equal(t, "corr-456", got.Get(middleware.HeaderCorrelationID))
	assert.Equal(t, "Bearer tok1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	resp, err := client.Get(context.Background(), "/quotes", WithBearerToken("tok1"))
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_FinalServerErrorReturnsResponse(t *testing.T) {
	var attempts atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	resp, err := client.Get(context.Background(), "/quotes")
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_PostIsNeverRetried(t *testing.T) {
	var attempts atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	resp, err := client.Post(context.Background(), "/quotes", strings.NewReader(`{"quote":"hello"}`))
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	resp, err := client.Get(context.Background(), "/quotes")
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, StateClosed, client.CircuitState())
}

func TestClient_Post(t *testing.T) {
	var body, contentType string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	})

	resp, err := client.Post(context.Background(), "quotes", strings.NewReader(`{"quote":"hello"}`), WithBearerToken("tok1"))
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"quote":"hello"}`, body)
	assert.Equal(t, "application/json", contentType)
}

func TestClient_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := defaultConfig("http://" + addr)
	cfg.Retry.MaxAttempts = 2

	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/quotes")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}, func(c *Config) {
		c.Timeout = 50 * time.Millisecond
		c.Retry.MaxAttempts = 1
	})

	_, err := client.Get(context.Background(), "/quotes")
	require.ErrorIs(t, err, ErrRequestFailed)
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "/quotes")
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_RateLimit(t *testing.T) {
	var attempts atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusOK)
	}, func(c *Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	})

	resp, err := client.Get(context.Background(), "/quotes")
	require.NoError(t, err)
	closeBody(t, resp)

	// The bucket is empty and refills far slower than the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Get(ctx, "/quotes")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, StateClosed, client.CircuitState())
}

func TestClient_CircuitBreakerShortCircuitsWhenOpen(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(c *Config) {
		c.Retry.MaxAttempts = 1
		c.Circuit.MaxFailures = 2
	})

	for range 2 {
		resp, err := client.Get(context.Background(), "/quotes")
		require.NoError(t, err)
		closeBody(t, resp)
	}

	assert.Equal(t, StateOpen, client.CircuitState())

	before := calls.Load()

	_, err := client.Get(context.Background(), "/quotes")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, calls.Load())
}

func TestClient_BuildURL(t *testing.T) {
	client, err := New(defaultConfig("http://localhost:5000"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/quotes", client.buildURL("/quotes"))
	assert.Equal(t, "http://localhost:5000/quotes", client.buildURL("quotes"))
}

func TestNewBackOff(t *testing.T) {
	cfg := defaultConfig("http://localhost:5000")
	cfg.Retry.InitialInterval = 100 * time.Millisecond
	cfg.Retry.MaxInterval = 300 * time.Millisecond

	client, err := New(cfg)
	require.NoError(t, err)

	b := client.newBackOff()

	// No jitter configured, so the schedule is exact.
	for _, want := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond} {
		assert.Equal(t, want, b.NextBackOff())
	}
}

func TestClient_RetryRewindsBody(t *testing.T) {
	var bodies []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))

		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut, client.buildURL("/quotes"), strings.NewReader(`{"quote":"a"}`))
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, []string{`{"quote":"a"}`, `{"quote":"a"}`}, bodies)
}

type testNetError struct{ timeout bool }

func (e testNetError) Error() string   { return "test net error" }
func (e testNetError) Timeout() bool   { return e.timeout }
func (e testNetError) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"net timeout", testNetError{timeout: true}, true},
		{"net non-timeout", testNetError{timeout: false}, false},
		{"op error", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}

func TestIsIdempotent(t *testing.T) {
	assert.True(t, isIdempotent(http.MethodGet))
	assert.True(t, isIdempotent(http.MethodDelete))
	assert.False(t, isIdempotent(http.MethodPost))
	assert.False(t, isIdempotent(http.MethodPatch))
}
