package health

import "context"

// Consumer interfaces, one per probed dependency.
type (
	// DBPinger is Valkey.
	DBPinger interface {
		Ping(ctx context.Context) error
	}
	// EmbeddingChecker is the query embedding provider.
	EmbeddingChecker interface {
		HealthCheck(ctx context.Context) error
	}
	// CatalogSizer is the loaded catalog.
	CatalogSizer interface {
		Len() int
	}
	// BreakerState is the circuit breaker in front of the vector index.
	BreakerState interface {
		State() string
	}
)
