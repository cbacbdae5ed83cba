// Package metrics exposes Prometheus instrumentation for provider calls,
// extraction jobs, and enrichment runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/profile-cli/internal/model"
)

// Metrics holds every collector. All methods are safe on a nil receiver so
// callers can run uninstrumented.
type Metrics struct {
	registry *prometheus.Registry

	EnrichItems      *prometheus.CounterVec
	EnrichRuns       prometheus.Counter
	EnrichDuration   prometheus.Histogram
	ExtractionJobs   *prometheus.CounterVec
	ExtractionTime   prometheus.Histogram
	ExtractionActive prometheus.Gauge
	BreachChecks     *prometheus.CounterVec
}

// New creates a Metrics instance on its own registry, including Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EnrichItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_enrichment_items_total",
			Help: "Enrichment items processed by task and result",
		}, []string{"task", "result"}), // result: "ok", "skipped", or an error code

		EnrichRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "profile_enrichment_runs_total",
			Help: "Completed enrichment runs",
		}),

		EnrichDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_enrichment_run_duration_seconds",
			Help:    "Wall time of a full enrichment run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		ExtractionJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_extraction_jobs_total",
			Help: "Extraction jobs by final state",
		}, []string{"state", "code"}),

		ExtractionTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_extraction_duration_seconds",
			Help:    "Duration of document extraction jobs",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),

		ExtractionActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "profile_extraction_jobs_in_flight",
			Help: "Extraction jobs currently running",
		}),

		BreachChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_breach_checks_total",
			Help: "Breach lookups by outcome",
		}, []string{"outcome"}), // "found", "clean", or an error code
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEnrichItem records one processed enrichment item.
func (m *Metrics) ObserveEnrichItem(task model.EnrichmentTask, code model.ErrorCode) {
	if m == nil {
		return
	}
	result := "ok"
	if code != "" {
		result = string(code)
	}
	m.EnrichItems.WithLabelValues(string(task), result).Inc()
}

// ObserveEnrichRun records a completed run.
func (m *Metrics) ObserveEnrichRun(d time.Duration) {
	if m == nil {
		return
	}
	m.EnrichRuns.Inc()
	m.EnrichDuration.Observe(d.Seconds())
}

// ExtractionStarted marks a job as running.
func (m *Metrics) ExtractionStarted() {
	if m != nil {
		m.ExtractionActive.Inc()
	}
}

// ExtractionFinished records a settled job.
func (m *Metrics) ExtractionFinished(state model.JobState, code model.ErrorCode, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionActive.Dec()
	m.ExtractionJobs.WithLabelValues(string(state), string(code)).Inc()
	m.ExtractionTime.Observe(d.Seconds())
}

// ExtractionRejected records a job that failed validation without running.
func (m *Metrics) ExtractionRejected(code model.ErrorCode) {
	if m != nil {
		m.ExtractionJobs.WithLabelValues(string(model.JobError), string(code)).Inc()
	}
}

// ObserveBreachCheck records one breach lookup outcome.
func (m *Metrics) ObserveBreachCheck(found bool, code model.ErrorCode) {
	if m == nil {
		return
	}
	outcome := "clean"
	switch {
	case code != "":
		outcome = string(code)
	case found:
		outcome = "found"
	}
	m.BreachChecks.WithLabelValues(outcome).Inc()
}
