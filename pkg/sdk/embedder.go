package bookrec

import "context"

// Embedder turns a query into a vector in the same space as the book index.
// It must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is a query vector plus the tokens billed for it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbedderFunc adapts a function that only returns a vector.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f and reports zero tokens.
func (f EmbedderFunc) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	v, err := f(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err
	}
	return EmbeddingResult{Embedding: v}, nil
}
