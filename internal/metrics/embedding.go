package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "provworker",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding pipeline invocations",
		},
		[]string{"mode", "device", "status"},
	)

	EmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "provworker",
			Name:      "embedding_duration_seconds",
			Help:      "Embedding pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode", "device"},
	)

	EmbeddingChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "provworker",
			Name:      "embedding_chunks_total",
			Help:      "Total text chunks embedded",
		},
		[]string{"device"},
	)

	EmbeddingBackoffsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "provworker",
			Name:      "embedding_oom_backoffs_total",
			Help:      "Batch size halvings caused by out-of-memory conditions",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "provworker",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	VRAMUsedGB = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "provworker",
			Name:      "vram_used_gb",
			Help:      "Peak VRAM delta observed by the last embedding run",
		},
	)
)

var registered bool

// Register registers all embedding metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingDuration)
	prometheus.MustRegister(EmbeddingChunksTotal)
	prometheus.MustRegister(EmbeddingBackoffsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(VRAMUsedGB)
	registered = true
}
