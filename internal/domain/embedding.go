package domain

import (
	"context"
	"fmt"
)

// Embedder turns query text into a vector in the index's space.
// Book descriptions are embedded offline when the index is built.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by embedders that can probe their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is a query vector plus the tokens the provider billed for it.
// Cache hits carry zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// CheckHealth probes e when it is a HealthChecker. Embedders without a probe count as healthy.
func CheckHealth(ctx context.Context, e Embedder) error {
	hc, ok := e.(HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // callers wrap
}

// instructionEmbedder prefixes every query with a fixed instruction, for
// models trained with asymmetric query/passage prompts.
type instructionEmbedder struct {
	inner       Embedder
	instruction string
}

// WithInstruction returns inner with instruction prepended to each query,
// or inner itself when instruction is empty.
func WithInstruction(inner Embedder, instruction string) Embedder {
	if instruction == "" {
		return inner
	}
	return &instructionEmbedder{inner: inner, instruction: instruction}
}

func (e *instructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return res, nil
}

func (e *instructionEmbedder) HealthCheck(ctx context.Context) error {
	return CheckHealth(ctx, e.inner)
}
