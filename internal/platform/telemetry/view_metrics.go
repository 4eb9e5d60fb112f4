package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcomes recorded by ViewMetrics.
const (
	OutcomeApplied   = "applied"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

// ViewMetrics counts quote list view operations. A nil *ViewMetrics records nothing.
type ViewMetrics struct {
	fetches metric.Int64Counter
	submits metric.Int64Counter
	quotes  metric.Int64Gauge
}

// NewViewMetrics creates view metrics on the global meter provider.
func NewViewMetrics() (*ViewMetrics, error) {
	meter := otel.Meter(instrumentationName)

	fetches, err := meter.Int64Counter(
		"quotes.view.fetch.total",
		metric.WithDescription("List fetches by outcome"),
	)
	if err != nil {
		return nil, err
	}

	submits, err := meter.Int64Counter(
		"quotes.view.submit.total",
		metric.WithDescription("Quote submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	quotes, err := meter.Int64Gauge(
		"quotes.view.list.size",
		metric.WithDescription("Number of quotes in the most recently updated view"),
	)
	if err != nil {
		return nil, err
	}

	return &ViewMetrics{fetches: fetches, submits: submits, quotes: quotes}, nil
}

// RecordFetch counts a completed fetch.
func (m *ViewMetrics) RecordFetch(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSubmit counts a completed submission.
func (m *ViewMetrics) RecordSubmit(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.submits.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordListSize records the list length after a mutation.
func (m *ViewMetrics) RecordListSize(ctx context.Context, n int) {
	if m == nil {
		return
	}

	m.quotes.Record(ctx, int64(n))
}
