package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	exporterDialTimeout = 3 * time.Second
	// a CLI run is short lived, flush often so a run's counters are not lost
	// between the last interval and shutdown
	metricInterval = 2 * time.Second
)

// transport reports which protocol the connection config selects, grpc wins
// when both endpoints are set.
func (c OtlpConnConfig) transport() (string, string) {
	if c.GrpcEndpoint != "" {
		return "grpc", c.GrpcEndpoint
	}
	return "http", c.HttpEndpoint
}

func logExporter(signal string, c OtlpConnConfig) {
	kind, endpoint := c.transport()
	slog.Info(
		"otlp exporter initialized",
		"signal", signal,
		"type", kind,
		"endpoint", endpoint,
		"headers", len(c.Headers) > 0,
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c OtlpConnConfig) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, c)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newSpanExporter(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterDialTimeout)
	defer cancel()

	logExporter("traces", c)
	if kind, endpoint := c.transport(); kind == "grpc" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(endpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(c.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c OtlpConnConfig) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, c)
	if err != nil {
		return nil, err
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(metricInterval))
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}

func newMetricExporter(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterDialTimeout)
	defer cancel()

	logExporter("metrics", c)
	if kind, endpoint := c.transport(); kind == "grpc" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(endpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
}
