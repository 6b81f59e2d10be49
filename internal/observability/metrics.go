// Package observability provides OpenTelemetry metrics exported in Prometheus format.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/makeasinger/musicengine"

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// NewServer returns an HTTP server exposing handler on /metrics, for processes
// that have no API server of their own
func NewServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// PipelineMetrics records job outcomes and stage timings
type PipelineMetrics struct {
	jobs        metric.Int64Counter
	placeholder metric.Int64Counter
	stage       metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on the global meter provider
func NewPipelineMetrics() (*PipelineMetrics, error) {
	return newPipelineMetrics(otel.GetMeterProvider().Meter(meterName))
}

// NopPipelineMetrics returns instruments that record nothing
func NopPipelineMetrics() *PipelineMetrics {
	m, _ := newPipelineMetrics(noop.NewMeterProvider().Meter(meterName))
	return m
}

func newPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	jobs, err := meter.Int64Counter("musicengine_jobs_total",
		metric.WithDescription("Jobs that reached a terminal status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create jobs counter: %w", err)
	}

	placeholder, err := meter.Int64Counter("musicengine_placeholder_total",
		metric.WithDescription("Jobs rendered from placeholder base audio"))
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder counter: %w", err)
	}

	stage, err := meter.Float64Histogram("musicengine_stage_duration_seconds",
		metric.WithDescription("Wall time spent in each pipeline stage"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create stage histogram: %w", err)
	}

	return &PipelineMetrics{jobs: jobs, placeholder: placeholder, stage: stage}, nil
}

// JobFinished counts a job by terminal status
func (m *PipelineMetrics) JobFinished(ctx context.Context, status string) {
	m.jobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// PlaceholderUsed counts a job whose base audio came from the placeholder
func (m *PipelineMetrics) PlaceholderUsed(ctx context.Context) {
	m.placeholder.Add(ctx, 1)
}

// StageDone records how long a stage took
func (m *PipelineMetrics) StageDone(ctx context.Context, stage string, elapsed time.Duration) {
	m.stage.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}
