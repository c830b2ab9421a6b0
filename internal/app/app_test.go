package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"spiroexport/internal/config"
	"spiroexport/internal/metrics"
	"spiroexport/internal/shared/testutil"
	"spiroexport/pkg/contracts/domain"
)

func testConfig(t *testing.T, withPopulation bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Export.Dir = t.TempDir()
	cfg.Data.Watch = false
	cfg.Data.PopulationFile = ""
	if withPopulation {
		cfg.Data.PopulationFile = testutil.WriteFile(t, t.TempDir(), "population.csv",
			testutil.PopulationCSV(t, testutil.DefaultSubjects()...))
	}
	return cfg
}

func newTestApp(t *testing.T, withPopulation bool) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return New(context.Background(), testConfig(t, withPopulation), logger, metrics.NewCollector(nil))
}

func serve(a *Application, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestApplication_PopulationSummary(t *testing.T) {
	a := newTestApp(t, true)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/population", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Count int `json:"count"`
		Total int `json:"total"`
		Rows  []struct {
			SEQN float64 `json:"SEQN"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 4, body.Total)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, float64(101), body.Rows[0].SEQN)
	assert.Equal(t, float64(102), body.Rows[1].SEQN)
}

func TestApplication_ExportPopulationCSV(t *testing.T) {
	a := newTestApp(t, true)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/export/csv?gender=Female", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv;charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Export-Records"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(domain.Columns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "102,"), lines[1])
}

func TestApplication_ExportDatasetRejected(t *testing.T) {
	a := newTestApp(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/export/csv", strings.NewReader(`{"SEQN":[1]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(a, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_DATASET", body["error_code"])
	assert.Equal(t, "/api/export/csv", body["instance"])
}

func TestApplication_WithoutPopulation(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := testConfig(t, false)
	cfg.Data.PopulationFile = filepath.Join(t.TempDir(), "missing.csv")
	a := New(context.Background(), cfg, logger, metrics.NewCollector(nil))

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "summary", path: "/api/population", wantStatus: http.StatusServiceUnavailable},
		{name: "export", path: "/api/export/xlsx", wantStatus: http.StatusServiceUnavailable},
		{name: "readiness", path: "/api/health/ready", wantStatus: http.StatusServiceUnavailable},
		{name: "liveness", path: "/api/health/live", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestApplication_NotFoundAndMethodNotAllowed(t *testing.T) {
	a := newTestApp(t, false)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(a, httptest.NewRequest(http.MethodDelete, "/api/population", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestApplication_Metrics(t *testing.T) {
	a := newTestApp(t, true)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/export/csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `spiroexport_exports_total{format="csv",outcome="success"} 1`)
	assert.Contains(t, body, `spiroexport_population_subjects 4`)
	assert.Contains(t, body, `route="/api/export/{format}"`)
}

func TestApplication_MetricsDisabled(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := testConfig(t, false)
	cfg.Server.EnableMetrics = false
	a := New(context.Background(), cfg, logger, metrics.NewCollector(nil))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplication_CORSPreflight(t *testing.T) {
	a := newTestApp(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/export/csv", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(a, req)

	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/export/csv", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = serve(a, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := testConfig(t, true)
	cfg.Server.Port = 0
	cfg.Data.Watch = true
	a := New(context.Background(), cfg, logger, metrics.NewCollector(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestApplication_TracesRequests(t *testing.T) {
	sr := testutil.RecordSpans(t)
	a := newTestApp(t, true)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/export/xlsx?gender=Male", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	server := testutil.SpanNamed(sr, "GET /api/export/{format}")
	require.NotNil(t, server)
	population := testutil.SpanNamed(sr, "ExportService.ExportPopulation")
	require.NotNil(t, population)
	export := testutil.SpanNamed(sr, "ExportService.ExportDataset")
	require.NotNil(t, export)

	assert.Equal(t, server.SpanContext().TraceID(), export.SpanContext().TraceID())
	assert.Equal(t, server.SpanContext().SpanID(), population.Parent().SpanID())
	assert.Equal(t, population.SpanContext().SpanID(), export.Parent().SpanID())
}

func TestApplication_StopFlushesTraces(t *testing.T) {
	var buf bytes.Buffer
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(&buf))
	require.NoError(t, err)
	a := newTestApp(t, false)
	a.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	_, span := a.TracerProvider.Tracer("test").Start(context.Background(), "pending")
	span.End()
	assert.Empty(t, buf.String())

	require.NoError(t, a.Stop(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"pending"`)
}
