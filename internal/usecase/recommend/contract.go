package recommend

import (
	"context"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

// VectorIndex returns the raw nearest neighbours of a query.
type VectorIndex interface {
	Search(ctx context.Context, query string, k int) ([]candidate.Hit, error)
}

// Catalog is the read-only book store.
type Catalog interface {
	Lookup(ctx context.Context, ids []int64) ([]book.Book, error)
	All(ctx context.Context) ([]book.Book, error)
	Schema() book.Schema
	Categories() []string
}
