package book

import (
	"math"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestNew_CoverFromThumbnail(t *testing.T) {
	b := New(9780002005883, Attrs{Thumbnail: "http://books.google.com/books/content?id=KQZCPgAACAAJ"})
	want := "http://books.google.com/books/content?id=KQZCPgAACAAJ&fife=w400"
	if b.Cover() != want {
		t.Errorf("Cover() = %q, want %q", b.Cover(), want)
	}
}

func TestNew_PlaceholderCover(t *testing.T) {
	b := New(1, Attrs{})
	if b.Cover() != PlaceholderCover {
		t.Errorf("Cover() = %q, want placeholder", b.Cover())
	}
}

func TestNew_OptionalScores(t *testing.T) {
	b := New(1, Attrs{
		Rating:   floatPtr(4.2),
		Emotions: map[Emotion]float64{Fear: 0.9, Joy: math.NaN()},
	})

	if r, ok := b.Rating(); !ok || r != 4.2 {
		t.Errorf("Rating() = %v, %v", r, ok)
	}
	if v, ok := b.Emotion(Fear); !ok || v != 0.9 {
		t.Errorf("Emotion(Fear) = %v, %v", v, ok)
	}
	if _, ok := b.Emotion(Joy); ok {
		t.Error("NaN emotion must be treated as absent")
	}
	if _, ok := b.Emotion(Sadness); ok {
		t.Error("missing emotion must be absent")
	}
}

func TestNew_NaNRatingAbsent(t *testing.T) {
	b := New(1, Attrs{Rating: floatPtr(math.NaN())})
	if _, ok := b.Rating(); ok {
		t.Error("NaN rating must be treated as absent")
	}
}

func TestSchema(t *testing.T) {
	s := NewSchema(false, Fear)
	if s.HasRating() {
		t.Error("expected no rating")
	}
	if !s.HasEmotion(Fear) || s.HasEmotion(Joy) {
		t.Error("unexpected emotion membership")
	}

	full := FullSchema()
	for _, e := range Emotions {
		if !full.HasEmotion(e) {
			t.Errorf("full schema missing %s", e)
		}
	}
	if !full.HasRating() {
		t.Error("full schema missing rating")
	}
}
