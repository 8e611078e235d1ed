package recommend

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

// Joined is the catalog view of a candidate pool.
type Joined struct {
	Books   []book.Book // in candidate order
	Missing int         // candidates absent from the catalog
}

// Join resolves candidates against the catalog, keeping similarity order.
// Unknown identifiers are dropped and counted.
func Join(ctx context.Context, catalog Catalog, cands []candidate.Candidate) (Joined, error) {
	if len(cands) == 0 {
		return Joined{}, nil
	}

	ids := make([]int64, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}

	books, err := catalog.Lookup(ctx, ids)
	if err != nil {
		return Joined{}, fmt.Errorf("catalog lookup: %w", err)
	}

	// Re-key by ISBN so the result follows candidate order whatever the catalog returns.
	byID := make(map[int64]book.Book, len(books))
	for _, b := range books {
		byID[b.ISBN13()] = b
	}

	out := Joined{Books: make([]book.Book, 0, len(cands))}
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			out.Missing++
			continue
		}
		out.Books = append(out.Books, b)
	}
	return out, nil
}
