package catalog

import (
	"context"
	"slices"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// Memory is an immutable in-memory catalog indexed by ISBN-13.
// Safe for concurrent readers.
type Memory struct {
	books      []book.Book
	byISBN     map[int64]int
	schema     book.Schema
	categories []string
}

// NewMemory builds a catalog. Books keep their given order; a repeated ISBN keeps the first record.
func NewMemory(books []book.Book, schema book.Schema) *Memory {
	m := &Memory{
		books:  make([]book.Book, 0, len(books)),
		byISBN: make(map[int64]int, len(books)),
		schema: schema,
	}

	seen := make(map[string]struct{})
	for _, b := range books {
		if _, dup := m.byISBN[b.ISBN13()]; dup {
			continue
		}
		m.byISBN[b.ISBN13()] = len(m.books)
		m.books = append(m.books, b)

		if c := b.Category(); c != "" {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				m.categories = append(m.categories, c)
			}
		}
	}
	slices.Sort(m.categories)
	return m
}

// Lookup returns the books for ids in the order of ids. Unknown ids are skipped.
func (m *Memory) Lookup(_ context.Context, ids []int64) ([]book.Book, error) {
	out := make([]book.Book, 0, len(ids))
	for _, id := range ids {
		if i, ok := m.byISBN[id]; ok {
			out = append(out, m.books[i])
		}
	}
	return out, nil
}

// All returns every book in catalog order.
func (m *Memory) All(_ context.Context) ([]book.Book, error) {
	return slices.Clone(m.books), nil
}

// Schema reports the optional columns present in the catalog.
func (m *Memory) Schema() book.Schema { return m.schema }

// Categories returns the distinct non-empty categories, sorted.
func (m *Memory) Categories() []string { return slices.Clone(m.categories) }

// Len returns the number of books.
func (m *Memory) Len() int { return len(m.books) }
