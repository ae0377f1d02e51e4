// Package observe provides application-wide observability primitives for
// Podium: OpenTelemetry metrics, distributed tracing, trace-aware logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so the /metrics endpoint can
// be scraped. [DefaultMetrics] returns a package-level instance bound to the
// global provider; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Podium metrics.
const meterName = "github.com/MrWong99/podium"

// Metrics holds all OpenTelemetry instruments for the application. All fields
// are safe for concurrent use.
type Metrics struct {
	// LiveTicks counts sampler ticks across all mounted panels.
	LiveTicks metric.Int64Counter

	// NotificationsRaised counts coaching tips raised across all panels.
	NotificationsRaised metric.Int64Counter

	// ActivePanels tracks the number of mounted live panels.
	ActivePanels metric.Int64UpDownCounter

	// LiveSubscribers tracks open WebSocket push connections.
	LiveSubscribers metric.Int64UpDownCounter

	// AnalysisRequests counts calls to the analysis backend. Use with
	// attribute.String("status", ...).
	AnalysisRequests metric.Int64Counter

	// AnalysisDuration tracks analysis backend round-trip latency.
	AnalysisDuration metric.Float64Histogram

	// ChartRenders counts rendered charts. Use with
	// attribute.String("source", "live"|"report").
	ChartRenders metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// analysisBuckets are histogram boundaries (in seconds) for video analysis,
// which transcribes and scores a whole recording.
var analysisBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LiveTicks, err = m.Int64Counter("podium.live.ticks",
		metric.WithDescription("Total metric sampler ticks across all live panels."),
	); err != nil {
		return nil, err
	}
	if met.NotificationsRaised, err = m.Int64Counter("podium.live.notifications",
		metric.WithDescription("Total coaching tips raised across all live panels."),
	); err != nil {
		return nil, err
	}
	if met.ActivePanels, err = m.Int64UpDownCounter("podium.live.active_panels",
		metric.WithDescription("Number of mounted live panels."),
	); err != nil {
		return nil, err
	}
	if met.LiveSubscribers, err = m.Int64UpDownCounter("podium.live.subscribers",
		metric.WithDescription("Number of open live push connections."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisRequests, err = m.Int64Counter("podium.analysis.requests",
		metric.WithDescription("Total analysis backend requests by status."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("podium.analysis.duration",
		metric.WithDescription("Latency of analysis backend requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChartRenders, err = m.Int64Counter("podium.chart.renders",
		metric.WithDescription("Total rendered charts by data source."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("podium.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAnalysis records one analysis backend call with its outcome.
func (m *Metrics) RecordAnalysis(ctx context.Context, status string, d time.Duration) {
	m.AnalysisRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.AnalysisDuration.Record(ctx, d.Seconds())
}

// RecordChartRender records one rendered chart.
func (m *Metrics) RecordChartRender(ctx context.Context, source string) {
	m.ChartRenders.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
