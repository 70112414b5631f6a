package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Query layer
	QueryTotal               CounterVec
	QueryDuration            HistogramVec
	QueriesInFlight          GaugeVec
	CandidatesEvaluatedTotal CounterVec
	LabelingsEvaluatedTotal  CounterVec
	AdvisoriesTotal          CounterVec

	// Engine layer
	GreedyStepDuration HistogramVec
	FanOutDuration     HistogramVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultQueryDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
)

// NewAppMetrics registers all metrics with collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.QueryTotal = collector.RegisterCounter("query_total", "Active-learning queries served", "strategy", "status")
	m.QueryDuration = collector.RegisterHistogram("query_duration_seconds", "Active-learning query duration", DefaultQueryDurationBuckets, "strategy")
	m.QueriesInFlight = collector.RegisterGauge("queries_in_flight", "Queries currently being evaluated", "strategy")
	m.CandidatesEvaluatedTotal = collector.RegisterCounter("candidates_evaluated_total", "Candidates scored by a strategy", "strategy")
	m.LabelingsEvaluatedTotal = collector.RegisterCounter("labelings_evaluated_total", "Hypothetical labelings simulated by the gain engine")
	m.AdvisoriesTotal = collector.RegisterCounter("advisories_total", "Non-fatal advisories attached to query results", "code")

	m.GreedyStepDuration = collector.RegisterHistogram("greedy_step_duration_seconds", "Duration of one greedy batch step", DefaultQueryDurationBuckets, "batch_mode")
	m.FanOutDuration = collector.RegisterHistogram("fanout_duration_seconds", "Duration of one parallel evaluation stage", DefaultQueryDurationBuckets, "stage")

	return m
}

// ── Recording helpers ─────────────────────────────────────────────────────────

// RecordHTTPRequest records one served HTTP request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordQuery records the outcome of one query.  status is "ok" or the
// error code reported to the caller.
func (m *AppMetrics) RecordQuery(strategy, status string, candidates int, duration time.Duration) {
	m.QueryTotal.WithLabelValues(strategy, status).Inc()
	m.QueryDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if candidates > 0 {
		m.CandidatesEvaluatedTotal.WithLabelValues(strategy).Add(float64(candidates))
	}
}

// RecordAdvisory counts one advisory by code.
func (m *AppMetrics) RecordAdvisory(code string) {
	m.AdvisoriesTotal.WithLabelValues(code).Inc()
}
