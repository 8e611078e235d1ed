package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recommendation pipeline metrics.
var (
	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // ok / empty / degraded / rejected
	)

	RecommendRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_rejections_total",
			Help:      "Queries rejected before search, by reason",
		},
		[]string{"reason"},
	)

	RecommendCandidatePool = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_candidate_pool_size",
			Help:      "Deduplicated candidates per retrieval",
			Buckets:   []float64{0, 1, 10, 25, 50, 100, 150, 200},
		},
	)

	RecommendSortKeyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_sort_key_total",
			Help:      "Applied ranking sort key",
		},
		[]string{"sort_key"},
	)

	RecommendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // retrieve / join / rank
	)

	IndexBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_breaker_state",
			Help:      "Vector index circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CatalogBooks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_books",
			Help:      "Books loaded into the in-memory catalog",
		},
	)
)

var registerRecommend sync.Once

// RegisterRecommendMetrics registers pipeline metrics with the default registry.
func RegisterRecommendMetrics() {
	registerRecommend.Do(func() {
		prometheus.MustRegister(
			RecommendRequestsTotal,
			RecommendRejectionsTotal,
			RecommendCandidatePool,
			RecommendSortKeyTotal,
			RecommendDuration,
			IndexBreakerState,
			CatalogBooks,
		)
	})
}
