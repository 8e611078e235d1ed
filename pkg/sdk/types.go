package bookrec

// Request is one recommendation query.
type Request struct {
	Query    string
	Category string // "" or "All" disables the filter
	Tone     string // "" or "All" means no tone preference
	TopK     int    // <= 0 uses the configured default
}

// Book is a catalog record. Rating is nil when the catalog has no rating for it.
type Book struct {
	ISBN13      int64
	Title       string
	Authors     string
	Description string
	Category    string
	Rating      *float64
	Emotions    map[string]float64
	Cover       string
}

// Rejection explains why a query was refused before search.
type Rejection struct {
	Reason  string
	Message string
}

// Result is the outcome of Recommend.
type Result struct {
	Books           []Book
	SortKey         string // emotion, rating_fallback, rating or none
	SearchPerformed bool
	Rejected        *Rejection
	// Degraded is set when the index failed and Books is empty for that reason.
	Degraded bool
	Missing  int // candidates not found in the catalog
}

// Options lists the selectable filter values.
type Options struct {
	Categories []string
	Tones      []string
}
