package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "facematch"

// Registry holds every facematch collector. It is private so a push only carries
// metrics of this invocation, not whatever else registered on the default registry.
var Registry = prometheus.NewRegistry()

// Request-level metrics.
var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of processed requests",
		},
		[]string{"type", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request processing duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)
)

// Extractor metrics.
var (
	ExtractorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_requests_total",
			Help:      "Total number of embedding backend calls",
		},
		[]string{"backend", "model", "status"},
	)

	ExtractorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extractor_request_duration_seconds",
			Help:      "Embedding backend call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "model"},
	)

	ExtractorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_errors_total",
			Help:      "Total embedding backend errors",
		},
		[]string{"backend", "model", "error_type"},
	)

	FacesDetected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "faces_detected",
			Help:      "Number of faces reported per extraction",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
	)
)

// Matching metrics.
var (
	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates seen by the matching engine",
		},
		[]string{"result"}, // "compared" / "skipped"
	)

	MatchDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_decisions_total",
			Help:      "Match decisions taken against the configured threshold",
		},
		[]string{"decision"}, // "match" / "no_match"
	)

	DegenerateComparisonsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_comparisons_total",
			Help:      "Comparisons that fell back to maximal distance on non-finite input",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors on Registry. Must be called once from main;
// repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			RequestsTotal,
			RequestDuration,
			ExtractorRequestsTotal,
			ExtractorRequestDuration,
			ExtractorErrorsTotal,
			FacesDetected,
			CandidatesTotal,
			MatchDecisionsTotal,
			DegenerateComparisonsTotal,
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		)
	})
}

// MatchDecision returns the label value for a decision.
func MatchDecision(isMatch bool) string {
	if isMatch {
		return "match"
	}
	return "no_match"
}
