package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the dashboard and ingest service.
type Metrics struct {
	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	recordsDerived *prometheus.CounterVec
	evidenceShapes *prometheus.CounterVec
	ingestMessages *prometheus.CounterVec
	dashboardViews *prometheus.CounterVec
	registry       *prometheus.Registry
}

var (
	instance *Metrics
	once     sync.Once
)

// Default returns the process-wide collectors, registering them on first use.
func Default() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mimir",
				Subsystem: "results",
				Name:      "fetch_total",
				Help:      "Results fetches partitioned by source and result.",
			},
			[]string{"source", "result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mimir",
				Subsystem: "results",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of results fetches.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		recordsDerived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mimir",
				Subsystem: "results",
				Name:      "records_derived_total",
				Help:      "Derived records by severity.",
			},
			[]string{"severity"},
		),
		evidenceShapes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mimir",
				Subsystem: "results",
				Name:      "evidence_shapes_total",
				Help:      "raw_logs payloads by parsed shape.",
			},
			[]string{"shape"},
		),
		ingestMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mimir",
				Subsystem: "ingest",
				Name:      "messages_total",
				Help:      "Pub/Sub push messages by outcome.",
			},
			[]string{"result"},
		),
		dashboardViews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mimir",
				Subsystem: "dashboard",
				Name:      "views_total",
				Help:      "Dashboard views rendered by view and state.",
			},
			[]string{"view", "state"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.recordsDerived,
		m.evidenceShapes,
		m.ingestMessages,
		m.dashboardViews,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch.
func (m *Metrics) ObserveFetch(source string, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.fetchTotal.WithLabelValues(source, result).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveDerived records derived records per severity.
func (m *Metrics) ObserveDerived(severity string, n int) {
	m.recordsDerived.WithLabelValues(severity).Add(float64(n))
}

// ObserveEvidenceShape records raw_logs payloads per parsed shape.
func (m *Metrics) ObserveEvidenceShape(shape string, n int) {
	m.evidenceShapes.WithLabelValues(shape).Add(float64(n))
}

// ObserveIngest records one ingest message outcome.
func (m *Metrics) ObserveIngest(result string) {
	m.ingestMessages.WithLabelValues(result).Inc()
}

// ObserveView records one rendered dashboard view.
func (m *Metrics) ObserveView(view, state string) {
	m.dashboardViews.WithLabelValues(view, state).Inc()
}
