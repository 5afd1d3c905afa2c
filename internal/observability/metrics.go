package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fintechbi"

// Drop reasons recorded on the rows_dropped counter
const (
	ReasonDuplicate = "duplicate"
	ReasonMalformed = "malformed"
	ReasonStatus    = "status"
)

// PipelineMetrics holds the counters of one pipeline run. Each run owns its
// registry so repeated runs in one process never collide on registration.
type PipelineMetrics struct {
	registry    *prometheus.Registry
	RowsRead    *prometheus.CounterVec
	RowsDropped *prometheus.CounterVec
	RowsLoaded  *prometheus.CounterVec
	RunDuration prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// NewPipelineMetrics creates and registers the pipeline metrics
func NewPipelineMetrics() *PipelineMetrics {
	m := &PipelineMetrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_read_total",
			Help:      "Rows read from each raw source.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_dropped_total",
			Help:      "Rows discarded before load, by source and reason.",
		}, []string{"source", "reason"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded_total",
			Help:      "Rows upserted into each warehouse table.",
		}, []string{"table"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last pipeline run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pipeline run.",
		}),
	}

	m.registry.MustRegister(m.RowsRead, m.RowsDropped, m.RowsLoaded, m.RunDuration, m.LastSuccess)
	return m
}

// ObserveSource records read and dropped row counts for a raw source
func (m *PipelineMetrics) ObserveSource(source string, read, duplicates, malformed int) {
	m.RowsRead.WithLabelValues(source).Add(float64(read))
	m.RowsDropped.WithLabelValues(source, ReasonDuplicate).Add(float64(duplicates))
	m.RowsDropped.WithLabelValues(source, ReasonMalformed).Add(float64(malformed))
}

// ObserveRun records the outcome of a run
func (m *PipelineMetrics) ObserveRun(duration time.Duration, succeeded bool, now time.Time) {
	m.RunDuration.Set(duration.Seconds())
	if succeeded {
		m.LastSuccess.Set(float64(now.Unix()))
	}
}

// Registry exposes the underlying registry for gathering
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format
func (m *PipelineMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
