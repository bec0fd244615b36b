package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	syncRunsTotal          *prometheus.CounterVec
	syncDurationSeconds    *prometheus.HistogramVec
	ingestRowsTotal        *prometheus.CounterVec
	ingestAssignmentsTotal *prometheus.CounterVec
	summaryRebuildsTotal   *prometheus.CounterVec
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the sync and
// ingestion pipelines.
func RegisterMetrics() {
	registerOnce.Do(func() {
		syncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of course sync runs, by outcome.",
		}, []string{"course", "result"})

		syncDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration distribution of course sync runs.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"course"})

		ingestRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Total number of submission rows written by the ingest pipeline.",
		}, []string{"course", "source"})

		ingestAssignmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_assignments_total",
			Help: "Total number of assignment exports ingested, by outcome.",
		}, []string{"course", "source", "result"})

		summaryRebuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "summary_rebuilds_total",
			Help: "Total number of summary projection rebuilds, by outcome.",
		}, []string{"course", "result"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 10, 60},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			syncRunsTotal,
			syncDurationSeconds,
			ingestRowsTotal,
			ingestAssignmentsTotal,
			summaryRebuildsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// SyncRuns exposes the counter for completed sync runs.
func SyncRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return syncRunsTotal
}

// SyncDuration exposes the histogram of sync run durations.
func SyncDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return syncDurationSeconds
}

// IngestRows exposes the counter for ingested submission rows.
func IngestRows() *prometheus.CounterVec {
	RegisterMetrics()
	return ingestRowsTotal
}

// IngestAssignments exposes the counter for ingested assignment exports.
func IngestAssignments() *prometheus.CounterVec {
	RegisterMetrics()
	return ingestAssignmentsTotal
}

// SummaryRebuilds exposes the counter for summary rebuilds.
func SummaryRebuilds() *prometheus.CounterVec {
	RegisterMetrics()
	return summaryRebuildsTotal
}
