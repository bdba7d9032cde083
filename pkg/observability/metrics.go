package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Port    int  `yaml:"port" mapstructure:"port"`
}

// Metrics records per-invocation facts. The engine only ever talks to
// this interface.
type Metrics interface {
	RecordInvocation(ctx context.Context, tool string, duration time.Duration, exitCode int, err error)
}

// InitMetrics builds prometheus-backed metrics, or an inert
// PrometheusMetrics when disabled.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("runtool")

	duration, err := meter.Float64Histogram(
		"runtool_invocation_duration_seconds",
		metric.WithDescription("Tool invocation duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation duration histogram: %w", err)
	}

	invocations, err := meter.Int64Counter(
		"runtool_invocations_total",
		metric.WithDescription("Total tool invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invocations counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		"runtool_invocation_failures_total",
		metric.WithDescription("Total failed tool invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	return &PrometheusMetrics{
		invocationDuration: duration,
		invocationsTotal:   invocations,
		failuresTotal:      failures,
	}, nil
}

type PrometheusMetrics struct {
	invocationDuration metric.Float64Histogram
	invocationsTotal   metric.Int64Counter
	failuresTotal      metric.Int64Counter
}

func (m *PrometheusMetrics) RecordInvocation(ctx context.Context, tool string, duration time.Duration, exitCode int, err error) {
	if m == nil || m.invocationDuration == nil || m.invocationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
		attribute.String("exit_code", strconv.Itoa(exitCode)),
	}

	m.invocationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.invocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.failuresTotal != nil {
		m.failuresTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Handler serves the prometheus scrape endpoint for the default
// registerer the otel exporter publishes to.
func Handler() http.Handler {
	return promhttp.Handler()
}
