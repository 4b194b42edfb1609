package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/sitepack"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	OutputBytes      metric.Int64Histogram

	// Dev server metrics
	ReloadBroadcastsTotal metric.Int64Counter
	ReloadClients         metric.Int64UpDownCounter

	// Static serving metrics
	RequestsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments are bound to the global meter provider, which is a no-op until
// InitTelemetry runs.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for build spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"sitepack.builds.total",
		metric.WithDescription("Total number of successful builds and rebuilds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"sitepack.builds.errors.total",
		metric.WithDescription("Total number of builds that reported errors"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"sitepack.builds.duration",
		metric.WithDescription("Duration of esbuild runs"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Histogram(
		"sitepack.builds.output.bytes",
		metric.WithDescription("Total size of emitted artifacts per build"),
		metric.WithUnit("By"),
	)

	m.ReloadBroadcastsTotal, _ = meter.Int64Counter(
		"sitepack.devserver.reloads.total",
		metric.WithDescription("Total number of reload messages broadcast to browsers"),
		metric.WithUnit("{message}"),
	)

	m.ReloadClients, _ = meter.Int64UpDownCounter(
		"sitepack.devserver.clients",
		metric.WithDescription("Number of connected live reload clients"),
		metric.WithUnit("{client}"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"sitepack.http.requests.total",
		metric.WithDescription("Total number of static asset requests"),
		metric.WithUnit("{request}"),
	)

	return m
}
