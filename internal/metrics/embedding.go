package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace          = "bookrec"
	embeddingSubsystem = "embedding"
)

// Query embedding metrics. Provider calls are counted in transport/openai,
// cache lookups in repository/embcache and budget state in usecase/embedding.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "requests_total",
			Help:      "Query embedding provider calls by status",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Query embedding provider latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"}, // prompt / total
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "errors_total",
			Help:      "Query embedding failures by type",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingBudgetTokensUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "budget_tokens_used",
			Help:      "Tokens spent in the current budget window",
		},
		[]string{"provider", "period"},
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "budget_tokens_remaining",
			Help:      "Tokens left in the current budget window, -1 when uncapped",
		},
		[]string{"provider", "period"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"}, // hit / miss
	)
)

// ObserveBudget publishes one budget window.
func ObserveBudget(provider, period string, used, remaining int64) {
	EmbeddingBudgetTokensUsed.WithLabelValues(provider, period).Set(float64(used))
	EmbeddingBudgetTokensRemaining.WithLabelValues(provider, period).Set(float64(remaining))
}

var registerEmbedding sync.Once

// RegisterEmbeddingMetrics registers embedding metrics with the default registry.
func RegisterEmbeddingMetrics() {
	registerEmbedding.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBudgetTokensUsed,
			EmbeddingBudgetTokensRemaining,
			EmbeddingCacheTotal,
		)
	})
}
