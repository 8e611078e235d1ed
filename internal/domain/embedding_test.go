package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type probedStub struct {
	stubEmbedder
	healthErr error
}

func (p *probedStub) HealthCheck(_ context.Context) error { return p.healthErr }

func TestWithInstruction_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := WithInstruction(inner, "query: ")

	result, err := emb.Embed(context.Background(), "a haunted house story")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: a haunted house story" {
		t.Errorf("inner got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestWithInstruction_EmptyReturnsInner(t *testing.T) {
	inner := &stubEmbedder{}
	if got := WithInstruction(inner, ""); got != Embedder(inner) {
		t.Errorf("empty instruction should not wrap, got %T", got)
	}
}

func TestWithInstruction_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	_, err := WithInstruction(&stubEmbedder{err: innerErr}, "query: ").Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	down := errors.New("down")
	ctx := context.Background()

	if err := CheckHealth(ctx, WithInstruction(&probedStub{healthErr: down}, "q: ")); !errors.Is(err, down) {
		t.Errorf("expected probe error through the decorator, got %v", err)
	}
	if err := CheckHealth(ctx, &stubEmbedder{}); err != nil {
		t.Errorf("embedder without a probe should be healthy, got %v", err)
	}
}

func TestEmbeddingUsage(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	if u.Embedded() {
		t.Fatal("fresh collector reports an embedding")
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UsageFromContext(ctx).AddTokens(7)
		}()
	}
	wg.Wait()

	if u.Tokens() != 70 || !u.Embedded() {
		t.Errorf("tokens = %d, embedded = %v", u.Tokens(), u.Embedded())
	}

	UsageFromContext(context.Background()).AddTokens(3)
}

func TestEmbeddingUsage_CacheHitCounts(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(0)
	if !u.Embedded() || u.Tokens() != 0 {
		t.Errorf("cache hit: tokens = %d, embedded = %v", u.Tokens(), u.Embedded())
	}
}
