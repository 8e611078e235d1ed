package book

import "math"

// PlaceholderCover is shown when a book has no thumbnail.
const PlaceholderCover = "https://via.placeholder.com/300x400/6c757d/ffffff?text=No+Cover"

// largeCoverSuffix asks the Google Books thumbnail endpoint for a 400px wide cover.
const largeCoverSuffix = "&fife=w400"

// Emotion is the name of a per-book emotion score column.
type Emotion string

// Emotion columns produced by the description classifier.
const (
	Joy      Emotion = "joy"
	Surprise Emotion = "surprise"
	Anger    Emotion = "anger"
	Fear     Emotion = "fear"
	Sadness  Emotion = "sadness"
)

// Emotions lists every known emotion column in a stable order.
var Emotions = []Emotion{Joy, Surprise, Anger, Fear, Sadness}

// Attrs holds the raw attributes used to build a Book.
// Nil Rating or a missing Emotions key means the value is absent.
type Attrs struct {
	Title       string
	Authors     string
	Description string
	Category    string
	Rating      *float64
	Emotions    map[Emotion]float64
	Thumbnail   string
}

// Book is a catalog record (immutable value object).
type Book struct {
	isbn13      int64
	title       string
	authors     string
	description string
	category    string
	rating      float64
	hasRating   bool
	emotions    map[Emotion]float64
	cover       string
}

// New creates a Book. The large cover URL is derived from the thumbnail,
// falling back to PlaceholderCover. NaN scores are treated as absent.
func New(isbn13 int64, a Attrs) Book {
	b := Book{
		isbn13:      isbn13,
		title:       a.Title,
		authors:     a.Authors,
		description: a.Description,
		category:    a.Category,
		cover:       LargeCover(a.Thumbnail),
	}
	if a.Rating != nil && !math.IsNaN(*a.Rating) {
		b.rating = *a.Rating
		b.hasRating = true
	}
	if len(a.Emotions) > 0 {
		b.emotions = make(map[Emotion]float64, len(a.Emotions))
		for e, v := range a.Emotions {
			if !math.IsNaN(v) {
				b.emotions[e] = v
			}
		}
	}
	return b
}

// LargeCover returns the large thumbnail URL for a raw thumbnail, or the placeholder.
func LargeCover(thumbnail string) string {
	if thumbnail == "" {
		return PlaceholderCover
	}
	return thumbnail + largeCoverSuffix
}

// ISBN13 returns the catalog identifier.
func (b *Book) ISBN13() int64 { return b.isbn13 }

// Title returns the book title (may be empty).
func (b *Book) Title() string { return b.title }

// Authors returns the semicolon separated author list (may be empty).
func (b *Book) Authors() string { return b.authors }

// Description returns the book description (may be empty).
func (b *Book) Description() string { return b.description }

// Category returns the simplified category label.
func (b *Book) Category() string { return b.category }

// Rating returns the average rating and whether it is present.
func (b *Book) Rating() (float64, bool) { return b.rating, b.hasRating }

// Emotion returns the score for an emotion and whether it is present.
func (b *Book) Emotion(e Emotion) (float64, bool) {
	v, ok := b.emotions[e]
	return v, ok
}

// Cover returns the large cover URL.
func (b *Book) Cover() string { return b.cover }
