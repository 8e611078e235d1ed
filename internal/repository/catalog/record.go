package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// Field names shared by the CSV header and the Valkey hash layout.
const (
	FieldISBN13      = "isbn13"
	FieldTitle       = "title"
	FieldAuthors     = "authors"
	FieldDescription = "description"
	FieldCategory    = "simple_categories"
	FieldRating      = "rating"
	FieldThumbnail   = "thumbnail"
)

// fieldAverageRating is accepted as an alias of FieldRating in CSV headers.
const fieldAverageRating = "average_rating"

var textFields = []string{FieldTitle, FieldAuthors, FieldDescription, FieldCategory, FieldThumbnail}

// Record is one catalog row keyed by field name. Absent or empty cells are missing values.
type Record map[string]string

// ISBN13 parses the identifier cell.
func (r Record) ISBN13() (int64, error) {
	raw := strings.TrimSpace(r[FieldISBN13])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("isbn13 %q: %w", raw, err)
	}
	return id, nil
}

// Book builds the domain record. Unparseable numeric cells count as missing.
func (r Record) Book() (book.Book, error) {
	id, err := r.ISBN13()
	if err != nil {
		return book.Book{}, err
	}

	attrs := book.Attrs{
		Title:       r[FieldTitle],
		Authors:     r[FieldAuthors],
		Description: r[FieldDescription],
		Category:    r[FieldCategory],
		Thumbnail:   strings.TrimSpace(r[FieldThumbnail]),
	}
	if v, ok := r.float(FieldRating); ok {
		attrs.Rating = &v
	}
	for _, e := range book.Emotions {
		if v, ok := r.float(string(e)); ok {
			if attrs.Emotions == nil {
				attrs.Emotions = make(map[book.Emotion]float64, len(book.Emotions))
			}
			attrs.Emotions[e] = v
		}
	}
	return book.New(id, attrs), nil
}

func (r Record) float(field string) (float64, bool) {
	raw := strings.TrimSpace(r[field])
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// fields returns the non-empty cells, the layout written to Valkey hashes.
func (r Record) fields() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// columns tracks which optional columns a catalog carries.
type columns struct {
	rating   bool
	emotions map[book.Emotion]bool
}

func (c *columns) observe(name string) {
	if name == FieldRating {
		c.rating = true
		return
	}
	for _, e := range book.Emotions {
		if name == string(e) {
			if c.emotions == nil {
				c.emotions = make(map[book.Emotion]bool)
			}
			c.emotions[e] = true
		}
	}
}

func (c *columns) schema() book.Schema {
	present := make([]book.Emotion, 0, len(c.emotions))
	for _, e := range book.Emotions {
		if c.emotions[e] {
			present = append(present, e)
		}
	}
	return book.NewSchema(c.rating, present...)
}
