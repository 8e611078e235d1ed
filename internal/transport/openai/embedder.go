// Package openai embeds search queries through any OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // 0 accepts whatever the model returns
	User       string
	Provider   string // metrics label
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Embedder turns one query into one vector.
type Embedder struct {
	client *openai.Client
	req    openai.EmbeddingRequest
	labels [2]string // provider, model
	log    *zap.Logger
}

// NewEmbedder builds an Embedder from cfg.
func NewEmbedder(cfg *Config) *Embedder {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Embedder{
		client: openai.NewClientWithConfig(cc),
		req: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(cfg.Model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     max(cfg.Dimensions, 0),
			User:           cfg.User,
		},
		labels: [2]string{cfg.Provider, cfg.Model},
		log:    log.With(zap.String("provider", cfg.Provider), zap.String("model", cfg.Model)),
	}
}

// Model returns the configured model name.
func (e *Embedder) Model() string { return e.labels[1] }

// Embed sends text to the provider. Every failure other than ctx ending wraps
// domain.ErrEmbeddingProviderError.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := e.req
	req.Input = []string{text}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.fail("canceled")
			return domain.EmbeddingResult{}, fmt.Errorf("embedding request: %w", ctxErr)
		}
		e.fail("api_error")
		e.log.Debug("Embedding request failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return domain.EmbeddingResult{}, providerError(err)
	}

	vec, err := e.vector(resp)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	provider, model := e.labels[0], e.labels[1]
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// vector returns the single embedding in resp, checked against the configured dimensions.
func (e *Embedder) vector(resp openai.EmbeddingResponse) ([]float32, error) {
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		e.fail("empty_response")
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	vec := resp.Data[0].Embedding
	if want := e.req.Dimensions; want > 0 && len(vec) != want {
		e.fail("dimension_mismatch")
		return nil, fmt.Errorf("embedding has %d dimensions, want %d: %w",
			len(vec), want, domain.ErrEmbeddingProviderError)
	}
	return vec, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) fail(reason string) {
	provider, model := e.labels[0], e.labels[1]
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(provider, model, reason).Inc()
}

// providerError keeps the HTTP status and the provider's message.
func providerError(err error) error {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("embedding API %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProviderError)
	case errors.As(err, &reqErr):
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = strings.TrimSpace(string(reqErr.Body))
		}
		return fmt.Errorf("embedding API %d: %s: %w",
			reqErr.HTTPStatusCode, msg, domain.ErrEmbeddingProviderError)
	default:
		return fmt.Errorf("embedding request: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
}

// extractDetail reads the "detail" field some compatible servers return instead of "error".
func extractDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
