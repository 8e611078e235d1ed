package bookrec

import (
	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/query"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrCatalogUnavailable     = domain.ErrCatalogUnavailable
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrQueryRejected          = query.ErrRejected
)
