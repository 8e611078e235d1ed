package domain

import "errors"

var (
	// ErrCatalogUnavailable signals that the catalog could not be loaded or read.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrIndexUnavailable signals that the vector index cannot serve queries
	// (disabled, missing index, or circuit open).
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
