package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// useMeterReader installs a manual metric reader as the global meter
// provider for the duration of the test.
func useMeterReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	prev := otel.GetMeterProvider()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}

	return out
}

func sumByAttr(t *testing.T, data metricdata.Aggregation, key attribute.Key) map[string]int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)

	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.Emit()] += dp.Value
	}

	return out
}

func TestSurface(t *testing.T) {
	tests := map[string]string{
		"/":                   SurfacePage,
		"/api/v1/view":        SurfaceAPI,
		"/api/v1/view/quotes": SurfaceAPI,
		"/-/live":             SurfaceOps,
		"/favicon.ico":        SurfacePage,
	}

	for path, want := range tests {
		assert.Equal(t, want, Surface(path), path)
	}
}

func TestRequestMetrics(t *testing.T) {
	reader := useMeterReader(t)

	router := gin.New()
	router.Use(RequestMetrics())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/view", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/", "/", "/api/v1/view", "/nope"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	data := collect(t, reader)

	bySurface := sumByAttr(t, data["http.server.request.total"], "dashboard.surface")
	assert.Equal(t, map[string]int64{SurfacePage: 3, SurfaceAPI: 1}, bySurface)

	byRoute := sumByAttr(t, data["http.server.request.total"], "http.route")
	assert.Equal(t, int64(1), byRoute["unmatched"])
	assert.Equal(t, int64(2), byRoute["/"])

	active := sumByAttr(t, data["http.server.active_requests"], "dashboard.surface")
	assert.Equal(t, int64(0), active[SurfacePage], "every request finished")

	assert.Contains(t, data, "http.server.request.duration")
}

func TestTracing_SetsTraceHeaderAndSkipsHealthPaths(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	router := gin.New()
	router.Use(Tracing("quote-saver", "/-/live"), TraceHeader())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "page") })
	router.GET("/-/live", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	page := httptest.NewRecorder()
	router.ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	live := httptest.NewRecorder()
	router.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody))

	assert.Regexp(t, `^[0-9a-f]{32}$`, page.Header().Get(HeaderTraceID))
	assert.Empty(t, live.Header().Get(HeaderTraceID))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, page.Header().Get(HeaderTraceID), spans[0].SpanContext().TraceID().String())
}

func TestViewMetrics(t *testing.T) {
	reader := useMeterReader(t)

	m, err := NewViewMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordFetch(ctx, OutcomeApplied)
	m.RecordFetch(ctx, OutcomeDiscarded)
	m.RecordSubmit(ctx, OutcomeFailed)
	m.RecordListSize(ctx, 3)

	data := collect(t, reader)

	assert.Equal(t,
		map[string]int64{OutcomeApplied: 1, OutcomeDiscarded: 1},
		sumByAttr(t, data["quotes.view.fetch.total"], "outcome"),
	)
	assert.Equal(t,
		map[string]int64{OutcomeFailed: 1},
		sumByAttr(t, data["quotes.view.submit.total"], "outcome"),
	)

	gauge, ok := data["quotes.view.list.size"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}

func TestViewMetrics_NilRecordsNothing(t *testing.T) {
	var m *ViewMetrics

	assert.NotPanics(t, func() {
		m.RecordFetch(context.Background(), OutcomeApplied)
		m.RecordSubmit(context.Background(), OutcomeApplied)
		m.RecordListSize(context.Background(), 1)
	})
}

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		assert.Contains(t, sampler(tt.rate).Description(), "root:"+tt.want)
	}
}

func TestShutdown_RunsInReverseOrder(t *testing.T) {
	var order []string

	p := &Provider{shutdowns: []func(context.Context) error{
		func(context.Context) error { order = append(order, "traces"); return nil },
		func(context.Context) error { order = append(order, "metrics"); return errors.New("flush failed") },
	}}

	err := p.Shutdown(context.Background())
	require.ErrorContains(t, err, "flush failed")

	assert.Equal(t, []string{"metrics", "traces"}, order)
	assert.NoError(t, p.Shutdown(context.Background()))
}
