// Package metrics exposes Prometheus instrumentation for exports, the
// population store and the HTTP API.
//
// Metrics:
//   - spiroexport_exports_total: exports by format and outcome
//   - spiroexport_export_rows: records per successful export
//   - spiroexport_population_subjects: subjects currently loaded
//   - spiroexport_population_reloads_total: population loads by outcome
//   - spiroexport_http_requests_total: requests by method, route and status
//   - spiroexport_http_request_duration_seconds: request latency
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spiroexport"

// Export outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Collector owns the registry and every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	exportsTotal *prometheus.CounterVec
	exportRows   *prometheus.HistogramVec

	populationSubjects prometheus.Gauge
	populationReloads  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics. If registry is nil a new
// one is created together with the Go runtime and process collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Number of export attempts by format and outcome",
			},
			[]string{"format", "outcome"},
		),
		exportRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_rows",
				Help:      "Records written per successful export",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260K
			},
			[]string{"format"},
		),
		populationSubjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_subjects",
			Help:      "Subjects in the currently loaded population",
		}),
		populationReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "population_reloads_total",
				Help:      "Population file loads by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.exportsTotal,
		c.exportRows,
		c.populationSubjects,
		c.populationReloads,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// RecordExport counts one export attempt. rows is only observed on success.
func (c *Collector) RecordExport(format, outcome string, rows int) {
	if c == nil {
		return
	}
	c.exportsTotal.WithLabelValues(format, outcome).Inc()
	if outcome == OutcomeSuccess {
		c.exportRows.WithLabelValues(format).Observe(float64(rows))
	}
}

// SetPopulationSize records the number of loaded subjects.
func (c *Collector) SetPopulationSize(n int) {
	if c == nil {
		return
	}
	c.populationSubjects.Set(float64(n))
}

// RecordReload counts a population load.
func (c *Collector) RecordReload(outcome string) {
	if c == nil {
		return
	}
	c.populationReloads.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a served request. route is the matched route
// pattern, not the raw path, to keep cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics endpoint for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
