// Package tone maps user-facing tone labels to emotion columns.
package tone

import "github.com/kailas-cloud/bookrec/internal/domain/book"

// All is the sentinel meaning "no tone preference".
const All = "All"

type mapping struct {
	label   string
	emotion book.Emotion
}

// mappings is ordered as presented to users.
var mappings = []mapping{
	{"Happy", book.Joy},
	{"Surprising", book.Surprise},
	{"Angry", book.Anger},
	{"Suspenseful", book.Fear},
	{"Sad", book.Sadness},
}

// Lookup returns the emotion column for a tone label.
// Empty, All and unknown labels report false.
func Lookup(label string) (book.Emotion, bool) {
	for _, m := range mappings {
		if m.label == label {
			return m.emotion, true
		}
	}
	return "", false
}

// Labels returns the selectable tone labels, starting with All.
func Labels() []string {
	out := make([]string, 0, len(mappings)+1)
	out = append(out, All)
	for _, m := range mappings {
		out = append(out, m.label)
	}
	return out
}
