package internal

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "archivist"

// Metrics holds the Prometheus collectors for archive and cleanup runs.
type Metrics struct {
	registry *prometheus.Registry

	runs             *prometheus.CounterVec
	sitesArchived    *prometheus.CounterVec
	snapshotsDeleted *prometheus.CounterVec
	cleanupExempt    *prometheus.GaugeVec
	runDuration      prometheus.Histogram
	lastRun          *prometheus.GaugeVec
}

// NewMetrics registers every collector on registry, or on a fresh
// registry when nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Scheduled runs by job and result.",
		}, []string{"job", "result"}),
		sitesArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sites_archived_total",
			Help:      "Site archive attempts by result.",
		}, []string{"result"}),
		snapshotsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshots_deleted_total",
			Help:      "Snapshots deleted by retention cleanup, per registry scope.",
		}, []string{"scope"}),
		cleanupExempt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cleanup_monthly_exempt",
			Help:      "Snapshots kept by the monthly-first rule in the last cleanup.",
		}, []string{"scope"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of archive runs.",
			Buckets:   []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run per job.",
		}, []string{"job"}),
	}

	registry.MustRegister(
		m.runs,
		m.sitesArchived,
		m.snapshotsDeleted,
		m.cleanupExempt,
		m.runDuration,
		m.lastRun,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveArchiveRun records a finished archive run.
func (m *Metrics) ObserveArchiveRun(report *RunReport) {
	if m == nil {
		return
	}
	for _, s := range report.Sites {
		m.sitesArchived.WithLabelValues(resultLabel(s.Err)).Inc()
	}
	result := "success"
	if !report.Success() {
		result = "failure"
	}
	m.runs.WithLabelValues("archive", result).Inc()
	m.runDuration.Observe(report.Duration().Seconds())
	m.lastRun.WithLabelValues("archive").Set(float64(report.Finished.Unix()))
}

// ObserveCleanup records the per-scope outcome of a cleanup run.
func (m *Metrics) ObserveCleanup(results []CleanupResult, finished time.Time) {
	if m == nil {
		return
	}
	result := "success"
	for _, r := range results {
		if r.Err != nil {
			result = "failure"
			continue
		}
		if !r.DryRun {
			m.snapshotsDeleted.WithLabelValues(r.Scope).Add(float64(r.Deleted))
		}
		m.cleanupExempt.WithLabelValues(r.Scope).Set(float64(r.Exempt))
	}
	m.runs.WithLabelValues("cleanup", result).Inc()
	m.lastRun.WithLabelValues("cleanup").Set(float64(finished.Unix()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
