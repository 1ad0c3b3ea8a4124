package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QueryKind labels metrics by the pipeline mode that produced them.
type QueryKind string

const (
	// QuerySimilarity marks similarity pipeline activity.
	QuerySimilarity QueryKind = "similarity"

	// QueryRecommendation marks recommendation pipeline activity.
	QueryRecommendation QueryKind = "recommendation"

	// QueryPassthrough marks direct external search requests.
	QueryPassthrough QueryKind = "passthrough"
)

// JudgeOp labels generative judge calls by operation.
type JudgeOp string

const (
	// JudgeOpTopics is topic extraction over the reading history.
	JudgeOpTopics JudgeOp = "extract_topics"

	// JudgeOpRank is candidate ranking.
	JudgeOpRank JudgeOp = "rank"
)

// Metrics contains all Prometheus metrics for the paper recommendation
// service, organized by subsystem: HTTP, external searches, candidates, and
// judge calls. All collectors are registered via promauto with the default
// Prometheus registry.
type Metrics struct {
	// HTTPRequestsTotal counts handled HTTP requests, labeled by method,
	// route pattern, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds,
	// labeled by method and route pattern.
	HTTPRequestDuration *prometheus.HistogramVec

	// SearchesTotal counts external searches, labeled by pipeline mode.
	SearchesTotal *prometheus.CounterVec

	// SearchesFailed counts failed external searches, labeled by
	// pipeline mode.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes external search duration in seconds,
	// labeled by pipeline mode.
	SearchDuration *prometheus.HistogramVec

	// CandidatesPerRun observes the deduplicated candidate count per
	// pipeline run, labeled by pipeline mode.
	CandidatesPerRun *prometheus.HistogramVec

	// JudgeRequestsTotal counts judge calls, labeled by operation.
	JudgeRequestsTotal *prometheus.CounterVec

	// JudgeRequestsFailed counts failed judge calls, labeled by
	// operation.
	JudgeRequestsFailed *prometheus.CounterVec

	// JudgeRequestDuration observes judge call duration in seconds,
	// labeled by operation.
	JudgeRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),

		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of external paper searches by pipeline mode",
		}, []string{"mode"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of failed external paper searches by pipeline mode",
		}, []string{"mode"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of external paper searches in seconds by pipeline mode",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"mode"}),

		CandidatesPerRun: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_run",
			Help:      "Deduplicated candidate count per pipeline run by mode",
			Buckets:   []float64{0, 1, 5, 10, 15, 20, 30, 50},
		}, []string{"mode"}),

		JudgeRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judge_requests_total",
			Help:      "Total number of generative judge calls by operation",
		}, []string{"operation"}),
		JudgeRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judge_requests_failed_total",
			Help:      "Total number of failed generative judge calls by operation",
		}, []string{"operation"}),
		JudgeRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_request_duration_seconds",
			Help:      "Duration of generative judge calls in seconds by operation",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
	}
}

// ObserveHTTPRequest records one handled HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSearch records one external search attempt and its outcome.
func (m *Metrics) ObserveSearch(kind QueryKind, duration time.Duration, err error) {
	m.SearchesTotal.WithLabelValues(string(kind)).Inc()
	m.SearchDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	if err != nil {
		m.SearchesFailed.WithLabelValues(string(kind)).Inc()
	}
}

// ObserveCandidates records the deduplicated candidate count of one run.
func (m *Metrics) ObserveCandidates(kind QueryKind, count int) {
	m.CandidatesPerRun.WithLabelValues(string(kind)).Observe(float64(count))
}

// ObserveJudgeCall records one generative judge call and its outcome.
func (m *Metrics) ObserveJudgeCall(op JudgeOp, duration time.Duration, err error) {
	m.JudgeRequestsTotal.WithLabelValues(string(op)).Inc()
	m.JudgeRequestDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
	if err != nil {
		m.JudgeRequestsFailed.WithLabelValues(string(op)).Inc()
	}
}
