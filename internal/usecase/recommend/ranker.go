package recommend

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/tone"
)

// CategoryAll disables the category filter.
const CategoryAll = "All"

// DefaultTopK is used when a caller asks for a non-positive number of results.
const DefaultTopK = 10

// SortKey names the ordering applied by Rank.
type SortKey string

const (
	// SortEmotion orders by the selected tone's emotion score, highest first.
	SortEmotion SortKey = "emotion"
	// SortRatingFallback orders by rating because the tone's emotion column is absent.
	SortRatingFallback SortKey = "rating_fallback"
	// SortRating orders by rating, highest first.
	SortRating SortKey = "rating"
	// SortNone keeps the incoming (similarity) order.
	SortNone SortKey = "none"
)

// Ranked is the final ordered list.
type Ranked struct {
	Books   []book.Book
	SortKey SortKey
	Emotion book.Emotion // set for SortEmotion and SortRatingFallback
}

// Rank filters books by category, orders them by tone or rating and keeps topK.
// The sort key follows the catalog schema; books lacking the value sort last.
// Input is not modified.
func Rank(books []book.Book, schema book.Schema, category, toneLabel string, topK int) Ranked {
	if topK <= 0 {
		topK = DefaultTopK
	}

	out := make([]book.Book, 0, len(books))
	for _, b := range books {
		if category == "" || category == CategoryAll || b.Category() == category {
			out = append(out, b)
		}
	}

	key, emotion := chooseSortKey(schema, toneLabel)
	switch key {
	case SortEmotion:
		sortDesc(out, func(b *book.Book) (float64, bool) { return b.Emotion(emotion) })
	case SortRating, SortRatingFallback:
		sortDesc(out, (*book.Book).Rating)
	case SortNone:
	}

	if len(out) > topK {
		out = out[:topK]
	}
	return Ranked{Books: out, SortKey: key, Emotion: emotion}
}

func chooseSortKey(schema book.Schema, toneLabel string) (SortKey, book.Emotion) {
	rating := SortNone
	if schema.HasRating() {
		rating = SortRating
	}

	emotion, ok := tone.Lookup(toneLabel)
	if !ok {
		return rating, ""
	}
	if schema.HasEmotion(emotion) {
		return SortEmotion, emotion
	}
	if rating == SortRating {
		return SortRatingFallback, emotion
	}
	return SortNone, emotion
}

// sortDesc stable-sorts by value descending; books without a value go last.
func sortDesc(books []book.Book, value func(*book.Book) (float64, bool)) {
	slices.SortStableFunc(books, func(a, b book.Book) int {
		va, okA := value(&a)
		vb, okB := value(&b)
		switch {
		case okA && okB:
			return cmp.Compare(vb, va)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
}
