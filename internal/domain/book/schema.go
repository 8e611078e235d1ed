package book

// Schema records which optional columns the loaded catalog carries.
// Ranking decides its sort key from the schema, not from individual books.
type Schema struct {
	rating   bool
	emotions map[Emotion]bool
}

// NewSchema creates a Schema.
func NewSchema(hasRating bool, emotions ...Emotion) Schema {
	s := Schema{rating: hasRating, emotions: make(map[Emotion]bool, len(emotions))}
	for _, e := range emotions {
		s.emotions[e] = true
	}
	return s
}

// FullSchema returns a schema with rating and every known emotion.
func FullSchema() Schema {
	return NewSchema(true, Emotions...)
}

// HasRating reports whether the catalog has a rating column.
func (s Schema) HasRating() bool { return s.rating }

// HasEmotion reports whether the catalog has the given emotion column.
func (s Schema) HasEmotion(e Emotion) bool { return s.emotions[e] }
