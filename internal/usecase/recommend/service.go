package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/query"
	"github.com/kailas-cloud/bookrec/internal/domain/tone"
	"github.com/kailas-cloud/bookrec/internal/logger"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// Config tunes the pipeline. Zero values pick defaults.
type Config struct {
	PoolSize     int // candidates requested from the index
	DefaultTopK  int
	MaxTopK      int // 0 = no cap
	FeaturedSize int
}

// Pipeline defaults.
const (
	DefaultPoolSize     = 200
	DefaultFeaturedSize = 12
)

func (c *Config) applyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = DefaultTopK
	}
	if c.FeaturedSize <= 0 {
		c.FeaturedSize = DefaultFeaturedSize
	}
}

// Request is one recommendation query.
type Request struct {
	Query    string
	Category string // "" or "All" disables the filter
	Tone     string // "" or "All" means no tone preference
	TopK     int    // <= 0 uses the configured default
}

// Result is the outcome of Recommend.
type Result struct {
	Books           []book.Book
	SortKey         SortKey
	Retrieval       Retrieval // Candidates are cleared; counts and outcome are kept
	Missing         int       // candidates absent from the catalog
	Rejection       *query.Rejection
	SearchPerformed bool
}

// Options lists the selectable filter values.
type Options struct {
	Categories []string
	Tones      []string
}

// Service runs validation, retrieval, join and ranking.
type Service struct {
	retriever *Retriever
	catalog   Catalog
	cfg       Config
	logger    *zap.Logger
}

// New creates a recommendation service.
func New(index VectorIndex, catalog Catalog, cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	return &Service{
		retriever: NewRetriever(index, logger),
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
	}
}

// Recommend validates the query and returns ranked books.
// A rejected query is reported in Result.Rejection without searching.
// The error is non-nil only when ctx is done.
func (s *Service) Recommend(ctx context.Context, req Request) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("recommend: %w", err)
	}
	log := logger.FromContext(ctx)

	q, err := query.Parse(req.Query)
	if err != nil {
		var rej *query.Rejection
		if !errors.As(err, &rej) {
			return Result{}, fmt.Errorf("parse query: %w", err)
		}
		metrics.RecommendRejectionsTotal.WithLabelValues(string(rej.Reason)).Inc()
		metrics.RecommendRequestsTotal.WithLabelValues("rejected").Inc()
		log.Debug("Query rejected", zap.String("reason", string(rej.Reason)))
		return Result{Rejection: rej}, nil
	}

	ctx = logger.With(ctx, zap.String("category", req.Category), zap.String("tone", req.Tone))
	log = logger.FromContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			log.Error("Recommendation pipeline panicked", zap.Any("panic", p), zap.Stack("stack"))
			metrics.RecommendRequestsTotal.WithLabelValues(string(OutcomeDegraded)).Inc()
			res = Result{
				SearchPerformed: true,
				SortKey:         SortNone,
				Retrieval:       Retrieval{Outcome: OutcomeDegraded, Reason: fmt.Sprintf("panic: %v", p)},
			}
			err = nil
		}
	}()

	return s.run(ctx, q, req)
}

func (s *Service) run(ctx context.Context, q query.Query, req Request) (Result, error) {
	log := logger.FromContext(ctx)

	start := time.Now()
	retrieval := s.retriever.Retrieve(ctx, q.Text(), s.cfg.PoolSize)
	metrics.RecommendDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("recommend: %w", err)
	}
	metrics.RecommendCandidatePool.Observe(float64(len(retrieval.Candidates)))

	start = time.Now()
	joined, err := Join(ctx, s.catalog, retrieval.Candidates)
	metrics.RecommendDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn("Catalog join failed, returning no books", zap.Error(err))
		retrieval.Outcome = OutcomeDegraded
		retrieval.Reason = err.Error()
		joined = Joined{}
	}
	if joined.Missing > 0 {
		log.Debug("Candidates missing from catalog", zap.Int("missing", joined.Missing))
	}

	start = time.Now()
	ranked := Rank(joined.Books, s.catalog.Schema(), req.Category, req.Tone, s.topK(req.TopK))
	metrics.RecommendDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())
	metrics.RecommendSortKeyTotal.WithLabelValues(string(ranked.SortKey)).Inc()
	metrics.RecommendRequestsTotal.WithLabelValues(string(retrieval.Outcome)).Inc()

	if ranked.SortKey == SortRatingFallback {
		log.Debug("Emotion column missing, sorted by rating", zap.String("emotion", string(ranked.Emotion)))
	}

	log.Debug("Recommendation completed",
		zap.String("outcome", string(retrieval.Outcome)),
		zap.Int("candidates", len(retrieval.Candidates)),
		zap.Int("joined", len(joined.Books)),
		zap.Int("returned", len(ranked.Books)),
		zap.String("sort_key", string(ranked.SortKey)),
	)

	retrieval.Candidates = nil
	return Result{
		Books:           ranked.Books,
		SortKey:         ranked.SortKey,
		Retrieval:       retrieval,
		Missing:         joined.Missing,
		SearchPerformed: true,
	}, nil
}

func (s *Service) topK(requested int) int {
	k := requested
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}
	if s.cfg.MaxTopK > 0 && k > s.cfg.MaxTopK {
		k = s.cfg.MaxTopK
	}
	return k
}

// Featured returns the home listing: the top n books by rating when the
// catalog has ratings, otherwise the first n in catalog order.
func (s *Service) Featured(ctx context.Context, n int) ([]book.Book, error) {
	if n <= 0 {
		n = s.cfg.FeaturedSize
	}

	all, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	all = slices.Clone(all)
	if s.catalog.Schema().HasRating() {
		sortDesc(all, (*book.Book).Rating)
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Options returns the category choices ("All" first, then sorted categories)
// and the tone choices.
func (s *Service) Options(_ context.Context) Options {
	cats := s.catalog.Categories()
	categories := make([]string, 0, len(cats)+1)
	categories = append(categories, CategoryAll)
	categories = append(categories, cats...)
	return Options{Categories: categories, Tones: tone.Labels()}
}
