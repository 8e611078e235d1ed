package recommend

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

type fakeIndex struct {
	hits    []candidate.Hit
	err     error
	panicV  any
	calls   int
	lastK   int
	lastQry string
}

func (f *fakeIndex) Search(_ context.Context, q string, k int) ([]candidate.Hit, error) {
	f.calls++
	f.lastK = k
	f.lastQry = q
	if f.panicV != nil {
		panic(f.panicV)
	}
	return f.hits, f.err
}

type fakeCatalog struct {
	books     []book.Book
	schema    book.Schema
	lookupErr error
}

func (f *fakeCatalog) Lookup(_ context.Context, ids []int64) ([]book.Book, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []book.Book
	for _, id := range ids {
		for _, b := range f.books {
			if b.ISBN13() == id {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) All(_ context.Context) ([]book.Book, error) { return f.books, nil }

func (f *fakeCatalog) Schema() book.Schema { return f.schema }

func (f *fakeCatalog) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range f.books {
		if c := b.Category(); c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// newBook builds a test book. Pass nil rating or a nil emotion map for missing values.
func newBook(id int64, category string, rating *float64, emotions map[book.Emotion]float64) book.Book {
	return book.New(id, book.Attrs{
		Title:     fmt.Sprintf("Book %d", id),
		Authors:   "Author",
		Category:  category,
		Rating:    rating,
		Emotions:  emotions,
		Thumbnail: "http://covers/" + fmt.Sprint(id),
	})
}

func ids(books []book.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ISBN13()
	}
	return out
}

func hit(payload string, distance float64) candidate.Hit {
	return candidate.Hit{Payload: payload, Distance: distance}
}
