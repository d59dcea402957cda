package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salesdash"

// Metrics holds the Prometheus collectors for the analysis pipeline.
type Metrics struct {
	registry      *prometheus.Registry
	ingest        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	cacheRequests *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on a fresh registry, together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Parsing attempts by reader strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each analysis pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.ingest,
		m.stageDuration,
		m.cacheRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveIngest counts one reader strategy attempt.
func (m *Metrics) ObserveIngest(strategy string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ingest.WithLabelValues(strategy, outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) CacheHit()  { m.cacheRequests.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.cacheRequests.WithLabelValues("miss").Inc() }

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
