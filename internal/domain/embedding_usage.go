package domain

import (
	"context"
	"sync/atomic"
)

type embeddingUsageKey struct{}

// EmbeddingUsage counts query embedding tokens spent on behalf of one request.
// The HTTP handler attaches it, the vector index feeds it and the handler
// reports the total in a response header.
type EmbeddingUsage struct {
	tokens atomic.Int64
	calls  atomic.Int32
}

// NewContextWithUsage attaches a fresh collector to ctx.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records one embedding call. A nil collector ignores it.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.tokens.Add(int64(n))
	u.calls.Add(1)
}

// Tokens returns the billed total.
func (u *EmbeddingUsage) Tokens() int64 { return u.tokens.Load() }

// Embedded reports whether a query was embedded, including cache hits.
func (u *EmbeddingUsage) Embedded() bool { return u.calls.Load() > 0 }
