// Package metrics defines the Prometheus collectors for ingestion, retrieval
// and upstream model calls.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "research_rag"

var (
	IngestOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_outcomes_total",
			Help:      "Ingestion outcomes by status",
		},
		[]string{"status"}, // admitted / duplicate / skipped / failed
	)

	ExperimentRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experiment_records_total",
			Help:      "Experiment record materializations by status",
		},
		[]string{"status"}, // written / skipped / failed
	)

	IndexStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_results_total",
			Help:      "Document indexing results",
		},
		[]string{"status"},
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Document classifications by deciding source",
		},
		[]string{"source", "type"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Number of passages returned per retrieval",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 12, 20},
		},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer requests by mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: answered / no_relevant_context / upstream_unavailable
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Upstream model requests",
		},
		[]string{"provider", "operation", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Upstream model request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)
)

func init() {
	prometheus.MustRegister(
		IngestOutcomesTotal,
		ExperimentRecordsTotal,
		IndexStatusTotal,
		ClassificationsTotal,
		RetrievalResults,
		AnswersTotal,
		LLMRequestsTotal,
		LLMRequestDuration,
	)
}
