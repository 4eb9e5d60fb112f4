package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-saver/internal/adapters/credentials"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/domain"
	"github.com/jsamuelsen/quote-saver/internal/mocks"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig(port int) *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            port,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxRequestSize:  1 << 20,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerNew(t *testing.T) {
	cfg := testServerConfig(8080)

	srv := New(cfg, discardLogger())

	require.NotNil(t, srv.Engine())
	assert.Same(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:8080", srv.Addr(), "configured address before start")
}

func TestServerAddr_IPv6(t *testing.T) {
	cfg := testServerConfig(3000)
	cfg.Host = "::1"

	assert.Equal(t, "[::1]:3000", New(cfg, discardLogger()).Addr())
}

// TestServerStartShutdown serves a request on a dynamic port, then drains.
func TestServerStartShutdown(t *testing.T) {
	srv := New(testServerConfig(0), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	var hookRan atomic.Bool
	srv.OnShutdown(func() { hookRan.Store(true) })

	errCh, err := srv.Start()
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr(), "bound address is reported")

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "error channel should be closed, got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server to stop")
	}

	assert.Eventually(t, hookRan.Load, time.Second, 10*time.Millisecond)
}

func TestServerRun_StopsWhenContextCancelled(t *testing.T) {
	srv := New(testServerConfig(0), discardLogger())

	var hookRan atomic.Bool
	srv.OnShutdown(func() { hookRan.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		return srv.Addr() != "127.0.0.1:0"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Eventually(t, hookRan.Load, time.Second, 10*time.Millisecond)
}

func TestServerRun_BindError(t *testing.T) {
	first := New(testServerConfig(0), discardLogger())
	_, err := first.Start()
	require.NoError(t, err)

	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	err = New(testServerConfig(p), discardLogger()).Run(context.Background())
	assert.ErrorContains(t, err, "listening on")
}

// TestServerStart_BindError verifies that an address in use fails Start.
func TestServerStart_BindError(t *testing.T) {
	first := New(testServerConfig(0), discardLogger())
	_, err := first.Start()
	require.NoError(t, err)

	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	_, err = New(testServerConfig(p), discardLogger()).Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		Name:        "quote-saver-test",
		Environment: "test",
		Version:     "1.0.0",
	}
}

func newTestDashboard(t *testing.T, svc *mocks.MockQuotesService) *handlers.DashboardHandler {
	t.Helper()

	logger := discardLogger()

	sessions := handlers.NewSessionStore(handlers.SessionStoreConfig{
		NewView: func() *app.QuoteListView {
			return app.NewQuoteListView(app.QuoteListViewConfig{
				Quotes:      svc,
				Credentials: credentials.RequestScoped{Provider: credentials.ContextProvider{}},
				Policy:      app.DefaultViewPolicy(),
				Logger:      logger,
			})
		},
		Logger: logger,
	})
	t.Cleanup(sessions.Close)

	return handlers.NewDashboardHandler(handlers.DashboardConfig{Sessions: sessions, Logger: logger})
}

// TestNewDefaultRouterConfig tests creating a default router configuration.
func TestNewDefaultRouterConfig(t *testing.T) {
	logger := discardLogger()
	appCfg := testAppConfig()
	healthHandler := handlers.NewHealthHandler(nil, handlers.BuildInfo{})

	cfg := NewDefaultRouterConfig(logger, appCfg, healthHandler, nil)

	assert.Equal(t, logger, cfg.Logger)
	assert.Equal(t, appCfg, cfg.AppConfig)
	assert.Equal(t, healthHandler, cfg.HealthHandler)
	assert.Equal(t, DefaultRequestTimeout, cfg.Timeout)
	assert.Equal(t, middleware.DefaultCredentialCookie, cfg.CredentialCookie)
	assert.Nil(t, cfg.Dashboard)
}

// TestSetupRouter tests the full router: health endpoints, page and API routes.
func TestSetupRouter(t *testing.T) {
	engine := gin.New()
	logger := discardLogger()

	cfg := NewDefaultRouterConfig(logger, testAppConfig(),
		handlers.NewHealthHandler(nil, handlers.BuildInfo{}),
		newTestDashboard(t, mocks.NewMockQuotesService(t)))

	require.NotPanics(t, func() {
		SetupRouter(engine, cfg)
	})

	routeMap := make(map[string]bool)
	for _, r := range engine.Routes() {
		routeMap[r.Method+" "+r.Path] = true
	}

	for _, expected := range []string{
		"GET /-/live",
		"GET /-/ready",
		"GET /",
		"POST /",
		"GET /api/v1/view",
		"PUT /api/v1/view/draft",
		"POST /api/v1/view/quotes",
	} {
		assert.True(t, routeMap[expected], "missing route: %s", expected)
	}
}

func TestSetupRouter_PageUsesCredentialCookie(t *testing.T) {
	svc := mocks.NewMockQuotesService(t)
	svc.EXPECT().ListQuotes(mock.Anything, "tok1").Return([]domain.Quote{{Text: "Stay hungry."}}, nil).Once()

	engine := gin.New()
	logger := discardLogger()
	SetupRouter(engine, NewDefaultRouterConfig(logger, testAppConfig(), nil, newTestDashboard(t, svc)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DefaultCredentialCookie, Value: "tok1"})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<li>Stay hungry.</li>")
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestSetupRouter_APIUsesAuthorizationHeader(t *testing.T) {
	svc := mocks.NewMockQuotesService(t)
	svc.EXPECT().ListQuotes(mock.Anything, "tok2").Return([]domain.Quote{}, nil).Once()

	engine := gin.New()
	logger := discardLogger()
	SetupRouter(engine, NewDefaultRouterConfig(logger, testAppConfig(), nil, newTestDashboard(t, svc)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/view", nil)
	req.Header.Set("Authorization", "Bearer tok2")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ViewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Mounted)
}

func TestSetupRouter_NotFound(t *testing.T) {
	engine := gin.New()
	logger := discardLogger()
	SetupRouter(engine, NewDefaultRouterConfig(logger, testAppConfig(), nil, nil))

	tests := []struct {
		path        string
		contentType string
	}{
		{"/api/v1/nope", "application/json"},
		{"/nope", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType))
		})
	}
}

// TestSetupRouterWithoutTimeout tests router setup with zero timeout.
func TestSetupRouterWithoutTimeout(t *testing.T) {
	engine := gin.New()
	logger := discardLogger()

	cfg := NewDefaultRouterConfig(logger, testAppConfig(), nil, newTestDashboard(t, mocks.NewMockQuotesService(t)))
	cfg.Timeout = 0

	require.NotPanics(t, func() {
		SetupRouter(engine, cfg)
	})
}

// TestSetupRouterWithNilHandlers tests router setup without health or dashboard handlers.
func TestSetupRouterWithNilHandlers(t *testing.T) {
	engine := gin.New()
	logger := discardLogger()

	require.NotPanics(t, func() {
		SetupRouter(engine, RouterConfig{Logger: logger, AppConfig: testAppConfig()})
	})
}

// TestMaxBodySizeMiddleware verifies oversized form posts are refused.
func TestMaxBodySizeMiddleware(t *testing.T) {
	cfg := testServerConfig(0)
	cfg.MaxRequestSize = 100

	srv := New(cfg, discardLogger())
	srv.Engine().POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}

		c.Status(http.StatusOK)
	})

	tests := []struct {
		name string
		size int
		want int
	}{
		{"under limit", 50, http.StatusOK},
		{"over limit", 500, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			body := "quote=" + strings.Repeat("a", tt.size)
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			srv.Engine().ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
