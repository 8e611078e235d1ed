package bookrec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbValkey "github.com/kailas-cloud/bookrec/internal/db/valkey"
	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/repository/catalog"
	"github.com/kailas-cloud/bookrec/internal/repository/embcache"
	"github.com/kailas-cloud/bookrec/internal/repository/vectorindex"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
)

const defaultReadinessTimeout = 10 * time.Second

// recommendUseCase is the internal pipeline interface, replaceable in tests.
type recommendUseCase interface {
	Recommend(ctx context.Context, req recommenduc.Request) (recommenduc.Result, error)
	Featured(ctx context.Context, n int) ([]book.Book, error)
	Options(ctx context.Context) recommenduc.Options
}

// Client is the bookrec SDK entry point.
type Client struct {
	store     *dbValkey.Store
	svc       recommendUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New loads the catalog and wires the recommendation pipeline.
// The provided context bounds the Valkey readiness check and catalog load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.csvPath == "" && len(cfg.addrs) == 0 {
		return nil, errors.New("bookrec: catalog source required (use WithCatalogCSV or WithValkey)")
	}
	if cfg.embedder != nil && cfg.index == nil && len(cfg.addrs) == 0 {
		return nil, errors.New("bookrec: embedder requires WithValkey")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store *dbValkey.Store
	if len(cfg.addrs) > 0 {
		store, err = dbValkey.NewStore(dbValkey.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("bookrec: create valkey store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("bookrec: valkey not ready: %w", err)
		}
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, store *dbValkey.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	log := zap.NewNop()

	var (
		cat *catalog.Memory
		err error
	)
	if cfg.csvPath != "" {
		cat, err = catalog.LoadCSV(cfg.csvPath, log)
	} else {
		cat, err = catalog.LoadStore(ctx, store, cfg.catalogPrefix, log)
	}
	if err != nil {
		return nil, fmt.Errorf("bookrec: load catalog: %w", err)
	}

	deps := healthuc.Deps{Catalog: cat}
	if store != nil {
		deps.DB = store
	}

	var index recommenduc.VectorIndex = vectorindex.Nop{}
	switch {
	case cfg.index != nil:
		index = cfg.index
	case cfg.embedder != nil && store != nil:
		var emb domain.Embedder = &embedderAdapter{inner: cfg.embedder}
		emb = embcache.New(emb, store, embcache.Options{Model: cfg.model}, log)
		breaker := vectorindex.NewBreaker(
			vectorindex.New(emb, store, vectorindex.Config{IndexName: cfg.indexName}, log),
			vectorindex.BreakerSettings{Name: "sdk"},
			log,
		)
		index = breaker
		deps.Index = breaker
	}

	svc := recommenduc.New(index, cat, recommenduc.Config{
		PoolSize:    cfg.poolSize,
		DefaultTopK: cfg.defaultTopK,
	}, log)

	return &Client{
		store:     store,
		svc:       svc,
		healthSvc: healthuc.New(deps),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Recommend validates the query and returns ranked books.
// A rejected query is reported in Result.Rejected with a nil error;
// the error is non-nil only when ctx is done.
func (c *Client) Recommend(ctx context.Context, req Request) (res Result, err error) {
	done := c.obs.begin("recommend")
	defer func() { done(err) }()

	r, err := c.svc.Recommend(ctx, recommenduc.Request{
		Query:    req.Query,
		Category: req.Category,
		Tone:     req.Tone,
		TopK:     req.TopK,
	})
	if err != nil {
		return Result{}, fmt.Errorf("recommend: %w", err)
	}

	if r.Rejection != nil {
		c.obs.outcome("rejected", 0)
		return Result{Rejected: &Rejection{
			Reason:  string(r.Rejection.Reason),
			Message: r.Rejection.Message,
		}}, nil
	}

	c.obs.outcome(string(r.Retrieval.Outcome), len(r.Books))
	return Result{
		Books:           booksFromDomain(r.Books),
		SortKey:         string(r.SortKey),
		SearchPerformed: r.SearchPerformed,
		Degraded:        r.Retrieval.Outcome == recommenduc.OutcomeDegraded,
		Missing:         r.Missing,
	}, nil
}

// Featured returns the home listing: top n books by rating, or the first n
// when the catalog has no ratings. n <= 0 uses 12.
func (c *Client) Featured(ctx context.Context, n int) (books []Book, err error) {
	done := c.obs.begin("featured")
	defer func() { done(err) }()

	bs, err := c.svc.Featured(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("featured: %w", err)
	}
	return booksFromDomain(bs), nil
}

// Options returns the selectable categories and tones, each starting with "All".
func (c *Client) Options(ctx context.Context) Options {
	o := c.svc.Options(ctx)
	return Options{Categories: o.Categories, Tones: o.Tones}
}

func booksFromDomain(bs []book.Book) []Book {
	out := make([]Book, len(bs))
	for i := range bs {
		out[i] = bookFromDomain(&bs[i])
	}
	return out
}

func bookFromDomain(b *book.Book) Book {
	out := Book{
		ISBN13:      b.ISBN13(),
		Title:       b.Title(),
		Authors:     b.Authors(),
		Description: b.Description(),
		Category:    b.Category(),
		Cover:       b.Cover(),
	}
	if r, ok := b.Rating(); ok {
		out.Rating = &r
	}
	for _, e := range book.Emotions {
		if v, ok := b.Emotion(e); ok {
			if out.Emotions == nil {
				out.Emotions = make(map[string]float64, len(book.Emotions))
			}
			out.Emotions[string(e)] = v
		}
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
