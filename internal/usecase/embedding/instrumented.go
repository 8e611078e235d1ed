package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// Budget is the token budget consulted around each provider call.
type Budget interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	Remaining() (daily, monthly int64)
	DailyUsed() int64
	MonthlyUsed() int64
}

// InstrumentedEmbedder enforces the token budget around an Embedder and logs
// each call. Provider metrics (requests, latency, tokens) live in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	budget Budget
	log    *zap.Logger
	labels [2]string // provider, model
}

// NewInstrumentedEmbedder wraps inner. budget may be nil for an uncapped provider.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget Budget, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		budget: budget,
		log:    logger.With(zap.String("provider", provider), zap.String("model", model)),
		labels: [2]string{provider, model},
	}
}

// Embed checks the budget, calls the provider and records the billed tokens.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.checkBudget(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	took := time.Since(start)
	if err != nil {
		p.log.Error("Embedding request failed", zap.Duration("duration", took), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.recordBudget(result.TotalTokens)
	p.log.Debug("Embedding request completed",
		zap.Duration("duration", took),
		zap.Int("query_runes", len([]rune(text))),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

func (p *InstrumentedEmbedder) checkBudget(ctx context.Context) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.labels[0], p.labels[1], "budget").Inc()
		p.log.Warn("Embedding budget exceeded", zap.Error(err))
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *InstrumentedEmbedder) recordBudget(tokens int) {
	if p.budget == nil || tokens <= 0 {
		return
	}
	p.budget.Record(int64(tokens))
	daily, monthly := p.budget.Remaining()
	metrics.ObserveBudget(p.labels[0], "daily", p.budget.DailyUsed(), daily)
	metrics.ObserveBudget(p.labels[0], "monthly", p.budget.MonthlyUsed(), monthly)
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	return domain.CheckHealth(ctx, p.inner) //nolint:wrapcheck // transparent decorator
}
