// Package handlers provides the HTTP handlers of the dashboard: the quotes
// page, its JSON view API, and the /-/ operational endpoints.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quote-saver/internal/ports"
)

// opsPrefix is the path group of the operational endpoints.
const opsPrefix = "/-"

// BuildInfo identifies the dashboard binary. The first three fields are set
// with -ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills GoVersion from the running toolchain.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// HealthHandler serves the liveness, readiness, build and metrics endpoints.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo
	started   time.Time
	metrics   http.Handler
}

// NewHealthHandler reports readiness from registry.
func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo) *HealthHandler {
	return &HealthHandler{
		registry:  registry,
		buildInfo: buildInfo,
		started:   time.Now(),
		metrics:   promhttp.Handler(),
	}
}

type livenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// Liveness answers 200 while the process can serve requests. It never
// touches the Quotes Service.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, livenessResponse{
		Status:  "ok",
		Version: h.buildInfo.Version,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}

type readinessResponse struct {
	Status    string                        `json:"status"`
	Checks    map[string]*ports.CheckResult `json:"checks,omitempty"`
	Timestamp time.Time                     `json:"timestamp"`
}

// Readiness answers 200 when the Quotes Service check and the session store
// both pass, 503 otherwise.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())

	status := http.StatusOK
	if result.Status != ports.HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, readinessResponse{
		Status:    string(result.Status),
		Checks:    result.Checks,
		Timestamp: result.Timestamp,
	})
}

// Build returns the BuildInfo.
func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// Metrics serves the Prometheus exposition.
func (h *HealthHandler) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// RegisterHealthRoutes mounts the endpoints under /-/ on r. Live and ready
// also answer HEAD for load balancers that check without a body.
func (h *HealthHandler) RegisterHealthRoutes(r gin.IRouter) {
	ops := r.Group(opsPrefix)

	for path, handler := range map[string]gin.HandlerFunc{
		"/live":  h.Liveness,
		"/ready": h.Readiness,
	} {
		ops.GET(path, handler)
		ops.HEAD(path, handler)
	}

	ops.GET("/build", h.Build)
	ops.GET("/metrics", h.Metrics)
}
