package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding and search Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aurahub",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aurahub",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aurahub",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aurahub",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchCandidatesTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aurahub",
			Name:      "search_candidates",
			Help:      "Candidate set size per semantic search",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	SearchOrphanedVectorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aurahub",
			Name:      "search_orphaned_vectors_total",
			Help:      "Stored vectors whose record row no longer exists",
		},
	)
)

var registered bool

// Register registers Prometheus metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(SearchCandidatesTotal)
	prometheus.MustRegister(SearchOrphanedVectorsTotal)
	registered = true
}
