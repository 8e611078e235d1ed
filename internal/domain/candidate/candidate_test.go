package candidate

import (
	"errors"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
		wantErr bool
	}{
		{"plain", "9780002005883 A NOVEL THAT READERS and critics", 9780002005883, false},
		{"quoted", `"9780006163831 A haunted house story"`, 9780006163831, false},
		{"leading quote only", `"9780006178736`, 9780006178736, false},
		{"leading whitespace", "  42 desc", 42, false},
		{"tab separated", "7\tdesc", 7, false},
		{"empty", "", 0, true},
		{"only quotes", `""`, 0, true},
		{"non numeric", "ISBN 978", 0, true},
		{"float token", "1.5 desc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("expected ErrMalformedPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %d, want %d", tt.payload, got, tt.want)
			}
		})
	}
}
