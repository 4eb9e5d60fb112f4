package telemetry

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/quote-saver/telemetry"

// HeaderTraceID echoes the trace of a sampled request.
const HeaderTraceID = "X-Trace-ID"

// Dashboard surfaces a request can belong to.
const (
	SurfacePage = "page"
	SurfaceAPI  = "api"
	SurfaceOps  = "ops"
)

// Surface classifies a request path for metrics.
func Surface(path string) string {
	switch {
	case strings.HasPrefix(path, "/-/"):
		return SurfaceOps
	case strings.HasPrefix(path, "/api/"):
		return SurfaceAPI
	default:
		return SurfacePage
	}
}

// Tracing returns otelgin middleware that starts a server span per request,
// except for skipPaths.
func Tracing(serviceName string, skipPaths ...string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(skipPaths, r.URL.Path)
	}))
}

// TraceHeader sets X-Trace-ID from the span that Tracing started and tags
// the request logger with it. It must run after Tracing.
func TraceHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			id := sc.TraceID().String()
			c.Header(HeaderTraceID, id)
			c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), id))
		}

		c.Next()
	}
}

// httpMetrics holds dashboard request instruments.
type httpMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics() (*httpMetrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Dashboard request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Dashboard requests by surface, route and status"),
	)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Dashboard requests in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{duration: duration, total: total, active: active}, nil
}

// RequestMetrics returns middleware recording request count, duration and
// concurrency. Unmatched routes are recorded as "unmatched" so probing
// clients cannot grow the route cardinality.
func RequestMetrics() gin.HandlerFunc {
	m, err := newHTTPMetrics()
	if err != nil {
		otel.Handle(err)

		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("dashboard.surface", Surface(c.Request.URL.Path)),
		)

		m.active.Add(ctx, 1, attrs)
		defer m.active.Add(ctx, -1, attrs)

		c.Next()

		status := metric.WithAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs, status)
		m.total.Add(ctx, 1, attrs, status)
	}
}
