// Package metrics exports pipeline instrumentation in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.Metrics = (*Exporter)(nil)

const namespace = "finsight"

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for stage latency histograms (in seconds)
	LatencyBuckets []float64

	// Runtime adds the Go runtime and process collectors.
	Runtime bool
}

// DefaultConfig returns the exporter configuration used by `finsight serve`.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		Runtime:        true,
	}
}

// Exporter records pipeline metrics in a Prometheus registry.
type Exporter struct {
	registry *prometheus.Registry

	stageLatency *prometheus.HistogramVec
	analyses     *prometheus.CounterVec
	degraded     prometheus.Counter
	indexSize    prometheus.Gauge
}

// NewExporter creates an exporter and registers its collectors.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each analysis pipeline stage in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyses by outcome",
		},
		[]string{"outcome"},
	)

	e.degraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_responses_total",
			Help:      "Model responses that could not be parsed and fell back to the degraded result",
		},
	)

	e.indexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "entries",
			Help:      "Number of chunks in the vector index",
		},
	)

	registry.MustRegister(e.stageLatency, e.analyses, e.degraded, e.indexSize)
	if cfg.Runtime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return e
}

// ObserveStage records how long a pipeline stage took.
func (e *Exporter) ObserveStage(stage string, d time.Duration) {
	e.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// IncAnalyses counts a finished analysis by outcome.
func (e *Exporter) IncAnalyses(outcome string) {
	e.analyses.WithLabelValues(outcome).Inc()
}

// IncDegraded counts a degraded model response.
func (e *Exporter) IncDegraded() {
	e.degraded.Inc()
}

// SetIndexSize reports the current number of index entries.
func (e *Exporter) SetIndexSize(n int) {
	e.indexSize.Set(float64(n))
}

// Handler returns an HTTP handler serving the registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
