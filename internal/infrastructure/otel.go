package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"

	"spiroexport/internal/config"
)

// ServiceName identifies this process in exported spans.
const ServiceName = "spiroexport"

// InitializeTracing installs the global tracer provider and the W3C trace
// context propagator. It returns nil when tracing is disabled or the exporter
// is "none"; callers shut a non-nil provider down on exit to flush spans.
func InitializeTracing(ctx context.Context, cfg config.TracingConfig, version string, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Exporter == "none" {
		logger.InfoContext(ctx, "tracing propagation only", slog.String("exporter", cfg.Exporter))
		return nil, nil
	}

	tp, err := newTracerProvider(cfg, version, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	otel.SetTracerProvider(tp)

	logger.InfoContext(ctx, "tracing initialized",
		slog.String("exporter", cfg.Exporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return tp, nil
}

// newTracerProvider builds a batching provider exporting to w.
func newTracerProvider(cfg config.TracingConfig, version string, w io.Writer) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(version)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	), nil
}

func newResource(version string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	)
}
