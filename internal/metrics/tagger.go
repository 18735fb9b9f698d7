package metrics

import "github.com/prometheus/client_golang/prometheus"

// Document outcome labels for DocumentsTotal.
const (
	DocumentTagged  = "tagged"
	DocumentBlank   = "blank"
	DocumentFailed  = "failed"
	DocumentSkipped = "skipped"
)

// Tagging Prometheus metrics.
var (
	BatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "doctagger",
			Name:      "batches_total",
			Help:      "Total number of non-empty batches processed",
		},
	)

	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctagger",
			Name:      "documents_total",
			Help:      "Documents seen by the tag writer, by outcome",
		},
		[]string{"status"},
	)

	ExtractDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "doctagger",
			Name:      "extract_duration_seconds",
			Help:      "Normalization plus topic extraction time per document",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	BulkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "doctagger",
			Name:      "bulk_duration_seconds",
			Help:      "Bulk write plus refresh time per batch",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	BulkItemFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "doctagger",
			Name:      "bulk_item_failures_total",
			Help:      "Update actions rejected by the index",
		},
	)
)

var taggerMetricsRegistered bool

// RegisterTaggerMetrics registers the tagging metrics. Must be called once from main.
func RegisterTaggerMetrics() {
	if taggerMetricsRegistered {
		return
	}
	prometheus.MustRegister(BatchesTotal)
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(ExtractDuration)
	prometheus.MustRegister(BulkDuration)
	prometheus.MustRegister(BulkItemFailuresTotal)
	taggerMetricsRegistered = true
}
