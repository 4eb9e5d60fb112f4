package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-saver/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-saver/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-saver/internal/platform/config"
	"github.com/jsamuelsen/quote-saver/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds one page or API request, including the calls
// it makes to the Quotes Service.
const DefaultRequestTimeout = 30 * time.Second

// apiPrefix is the path prefix of the JSON routes.
const apiPrefix = "/api/v1"

// healthPaths are polled by orchestrators; they are neither traced nor logged.
var healthPaths = []string{"/-/live", "/-/ready", "/-/metrics"}

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// AppConfig contains application configuration.
	AppConfig *config.AppConfig

	// HealthHandler handles health check endpoints.
	HealthHandler *handlers.HealthHandler

	// Dashboard serves the quotes page and the view API.
	Dashboard *handlers.DashboardHandler

	// CredentialCookie names the cookie carrying the bearer token.
	CredentialCookie string

	// Timeout is the default request timeout.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. Tracing - otelgin span and X-Trace-ID (skips health endpoints)
//  5. Metrics - request count, duration and concurrency per surface
//  6. Logging - request logging (skips health endpoints)
//  7. Credential - bearer token from cookie or header (dashboard routes only)
//  8. Timeout - request deadline (dashboard routes only)
//
// Route groups:
//   - /-/ (internal): Health endpoints, no credential, no timeout
//   - / (page): The quotes dashboard
//   - /api/v1/ (JSON): The same view as JSON
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.Tracing(cfg.AppConfig.Name, healthPaths...),
		telemetry.TraceHeader(),
		telemetry.RequestMetrics(),
		middleware.Logging(cfg.Logger, healthPaths...),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine)
	}

	engine.NoRoute(notFound)

	if cfg.Dashboard == nil {
		return
	}

	dashboard := engine.Group("", middleware.Credential(cfg.CredentialCookie))
	if cfg.Timeout > 0 {
		dashboard.Use(middleware.Deadline(cfg.Timeout))
	}

	cfg.Dashboard.RegisterDashboardRoutes(dashboard, dashboard.Group(apiPrefix))
}

// notFound answers unknown API paths with a JSON error and everything else
// with plain text.
func notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, apiPrefix+"/") {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrorCodeNotFound,
			"no route for "+c.Request.Method+" "+c.Request.URL.Path,
		).WithTraceID(dto.GetTraceID(c)))

		return
	}

	c.String(http.StatusNotFound, "404 page not found")
}

// NewDefaultRouterConfig creates a RouterConfig with the default timeout and
// credential cookie.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	healthHandler *handlers.HealthHandler,
	dashboard *handlers.DashboardHandler,
) RouterConfig {
	return RouterConfig{
		Logger:           logger,
		AppConfig:        appCfg,
		HealthHandler:    healthHandler,
		Dashboard:        dashboard,
		CredentialCookie: middleware.DefaultCredentialCookie,
		Timeout:          DefaultRequestTimeout,
	}
}
