package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"

	"spiroexport/internal/infrastructure"
)

func newTracedRouter(t *testing.T, gotTraceID *string) (*chi.Mux, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := chi.NewRouter()
	r.Use(Tracing(tp))
	r.Use(RequestID)
	r.Get("/api/export/{format}", func(w http.ResponseWriter, r *http.Request) {
		*gotTraceID = infrastructure.GetTraceID(r.Context())
		if chi.URLParam(r, "format") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	})
	return r, sr
}

func TestTracing_Spans(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   codes.Code
	}{
		{name: "success", path: "/api/export/csv", wantStatus: http.StatusOK, wantCode: codes.Unset},
		{name: "server error", path: "/api/export/broken", wantStatus: http.StatusInternalServerError, wantCode: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTraceID string
			r, sr := newTracedRouter(t, &gotTraceID)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.wantStatus, rec.Code)

			spans := sr.Ended()
			require.Len(t, spans, 1)
			span := spans[0]
			assert.Equal(t, "GET /api/export/{format}", span.Name())
			assert.Equal(t, tt.wantCode, span.Status().Code)
			assert.Contains(t, span.Attributes(), semconv.HTTPResponseStatusCodeKey.Int(tt.wantStatus))
			assert.Contains(t, span.Attributes(), semconv.HTTPRouteKey.String("/api/export/{format}"))

			// Log lines carry the span's trace ID rather than the request ID.
			assert.Equal(t, span.SpanContext().TraceID().String(), gotTraceID)
			assert.NotEqual(t, rec.Header().Get(RequestIDHeader), gotTraceID)
		})
	}
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var gotTraceID string
	r, sr := newTracedRouter(t, &gotTraceID)

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", gotTraceID)
}
