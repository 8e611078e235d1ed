package vectorindex

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/db"
	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterRecommendMetrics()
	os.Exit(m.Run())
}

type fakeEmbedder struct {
	result domain.EmbeddingResult
	err    error
	got    string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.got = text
	return f.result, f.err
}

type fakeStore struct {
	result *db.SearchResult
	err    error
	query  *db.KNNQuery
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.query = q
	return f.result, f.err
}

func TestIndex_Search(t *testing.T) {
	emb := &fakeEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 5}}
	st := &fakeStore{result: &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
		{Key: "bookrec:desc:1", Distance: 0.12, Fields: map[string]string{"__content": `"9780002005883 A haunted house"`}},
		{Key: "bookrec:desc:2", Distance: 0.3, Fields: map[string]string{"other": "x"}},
	}}}
	idx := New(emb, st, Config{}, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	hits, err := idx.Search(ctx, "haunted house", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if emb.got != "haunted house" {
		t.Errorf("embedder got %q", emb.got)
	}
	if st.query.IndexName != DefaultIndexName || st.query.K != 200 || st.query.VectorField != DefaultVectorField {
		t.Errorf("unexpected query: %+v", st.query)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Payload != `"9780002005883 A haunted house"` || hits[0].Distance != 0.12 {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Payload != "" {
		t.Errorf("missing payload field should yield empty payload, got %q", hits[1].Payload)
	}
	if usage.Tokens() != 5 {
		t.Errorf("usage tokens = %d, want 5", usage.Tokens())
	}
}

func TestIndex_Search_NonPositiveK(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := New(emb, &fakeStore{}, Config{}, zap.NewNop())

	hits, err := idx.Search(context.Background(), "query", 0)
	if err != nil || hits != nil {
		t.Fatalf("expected nil, nil; got %v, %v", hits, err)
	}
	if emb.got != "" {
		t.Error("embedder must not be called for k <= 0")
	}
}

func TestIndex_Search_Errors(t *testing.T) {
	embErr := errors.New("provider down")

	tests := []struct {
		name     string
		emb      *fakeEmbedder
		store    *fakeStore
		sentinel error
	}{
		{
			name:     "embedding failure",
			emb:      &fakeEmbedder{err: embErr},
			store:    &fakeStore{},
			sentinel: embErr,
		},
		{
			name:     "missing index",
			emb:      &fakeEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}},
			store:    &fakeStore{err: &db.Error{Cmd: "FT.SEARCH", Err: db.ErrIndexNotFound}},
			sentinel: domain.ErrIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := New(tt.emb, tt.store, Config{IndexName: "custom:idx"}, zap.NewNop())
			_, err := idx.Search(context.Background(), "query", 10)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestIndex_Search_EmptyResult(t *testing.T) {
	emb := &fakeEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	idx := New(emb, &fakeStore{result: &db.SearchResult{}}, Config{}, zap.NewNop())

	hits, err := idx.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestNop_Search(t *testing.T) {
	hits, err := Nop{}.Search(context.Background(), "query", 200)
	if err != nil || hits != nil {
		t.Fatalf("expected nil, nil; got %v, %v", hits, err)
	}
}
