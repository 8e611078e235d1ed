package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/db"
	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

// Defaults for the pre-built description index.
const (
	DefaultIndexName    = "bookrec:desc:idx"
	DefaultVectorField  = "vector"
	DefaultPayloadField = "__content"
)

// store is the consumer interface for KNN queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config names the index and the fields it exposes.
type Config struct {
	IndexName    string
	VectorField  string
	PayloadField string
}

func (c *Config) applyDefaults() {
	if c.IndexName == "" {
		c.IndexName = DefaultIndexName
	}
	if c.VectorField == "" {
		c.VectorField = DefaultVectorField
	}
	if c.PayloadField == "" {
		c.PayloadField = DefaultPayloadField
	}
}

// Index embeds the query and runs a KNN search over the description index.
type Index struct {
	embedder domain.Embedder
	store    store
	cfg      Config
	logger   *zap.Logger
}

// New creates a vector index client.
func New(embedder domain.Embedder, s store, cfg Config, logger *zap.Logger) *Index {
	cfg.applyDefaults()
	return &Index{embedder: embedder, store: s, cfg: cfg, logger: logger}
}

// Name returns the FT index name.
func (i *Index) Name() string { return i.cfg.IndexName }

// Search returns up to k nearest descriptions in engine order.
// Entries without a payload field come back with an empty payload.
func (i *Index) Search(ctx context.Context, query string, k int) ([]candidate.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	emb, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	sr, err := i.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    i.cfg.IndexName,
		VectorField:  i.cfg.VectorField,
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: []string{i.cfg.PayloadField, "__vector_score"},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("search %s: %w: %w", i.cfg.IndexName, domain.ErrIndexUnavailable, err)
		}
		return nil, fmt.Errorf("search %s: %w", i.cfg.IndexName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]candidate.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, candidate.Hit{Payload: e.Fields[i.cfg.PayloadField], Distance: e.Distance})
	}

	i.logger.Debug("Vector search completed",
		zap.String("index", i.cfg.IndexName),
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}
