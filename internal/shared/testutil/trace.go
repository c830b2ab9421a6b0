package testutil

import (
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// RecordSpans installs a global tracer provider that records every span
// until the test ends.
func RecordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

// SpanNamed returns the first ended span called name, or nil.
func SpanNamed(sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}
