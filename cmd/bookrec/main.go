package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/config"
	dbValkey "github.com/kailas-cloud/bookrec/internal/db/valkey"
	"github.com/kailas-cloud/bookrec/internal/domain"
	logpkg "github.com/kailas-cloud/bookrec/internal/logger"
	"github.com/kailas-cloud/bookrec/internal/metrics"
	budgetrepo "github.com/kailas-cloud/bookrec/internal/repository/budget"
	"github.com/kailas-cloud/bookrec/internal/repository/catalog"
	"github.com/kailas-cloud/bookrec/internal/repository/embcache"
	"github.com/kailas-cloud/bookrec/internal/repository/vectorindex"
	chiTransport "github.com/kailas-cloud/bookrec/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/bookrec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/bookrec/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
	usageuc "github.com/kailas-cloud/bookrec/internal/usecase/usage"
	"github.com/kailas-cloud/bookrec/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger("bookrec", env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bookrec API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.Bool("index_enabled", cfg.Index.IsEnabled()),
	)

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRecommendMetrics()

	ctx := context.Background()

	var store *dbValkey.Store
	if cfg.NeedsDatabase() {
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create valkey store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Valkey not ready", zap.Error(err))
		}
		logger.Info("Connected to valkey", zap.Strings("addrs", cfg.Database.Addrs))
	}

	cat, err := loadCatalog(ctx, cfg.Catalog, store, logger)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	metrics.CatalogBooks.Set(float64(cat.Len()))
	logger.Info("Catalog loaded",
		zap.Int("books", cat.Len()),
		zap.Int("categories", len(cat.Categories())),
	)

	healthDeps := healthuc.Deps{Catalog: cat}
	if store != nil {
		healthDeps.DB = store
	}

	var (
		index       recommenduc.VectorIndex = vectorindex.Nop{}
		budgetState usageuc.TokenBudget
	)
	if cfg.Index.IsEnabled() {
		embedder, tracker := buildQueryEmbedder(ctx, cfg, store, logger)
		if tracker != nil {
			budgetState = tracker
		}
		breaker := vectorindex.NewBreaker(
			vectorindex.New(embedder, store, vectorindex.Config{
				IndexName:    cfg.Index.Name,
				VectorField:  cfg.Index.VectorField,
				PayloadField: cfg.Index.PayloadField,
			}, logger),
			breakerSettings(cfg.Index.Breaker),
			logger,
		)
		index = breaker
		healthDeps.Embedding = newEmbeddingHealthChecker(embedder)
		healthDeps.Index = breaker
		logger.Info("Vector index configured", zap.String("index", cfg.Index.Name))
	} else {
		logger.Warn("Vector index disabled, recommendations will be empty")
	}

	recommendSvc := recommenduc.New(index, cat, recommenduc.Config{
		PoolSize:     cfg.Recommend.PoolSize,
		DefaultTopK:  cfg.Recommend.DefaultTopK,
		MaxTopK:      cfg.Recommend.MaxTopK,
		FeaturedSize: cfg.Recommend.FeaturedSize,
	}, logger)
	healthSvc := healthuc.New(healthDeps)

	server := chiTransport.NewServer(recommendSvc, healthSvc, logger).
		WithUsage(usageuc.New(budgetState))
	handler := server.Routes(chiTransport.RouterConfig{
		APIKeys:           cfg.Auth.APIKeys,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func loadCatalog(
	ctx context.Context, cfg config.CatalogConfig, store *dbValkey.Store, logger *zap.Logger,
) (*catalog.Memory, error) {
	switch cfg.Source {
	case config.CatalogSourceValkey:
		cat, err := catalog.LoadStore(ctx, store, cfg.KeyPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("load catalog from valkey: %w", err)
		}
		return cat, nil
	default:
		cat, err := catalog.LoadCSV(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("load catalog csv: %w", err)
		}
		return cat, nil
	}
}

func breakerSettings(c config.BreakerConfig) vectorindex.BreakerSettings {
	return vectorindex.BreakerSettings{
		MaxRequests:  c.MaxRequests,
		Interval:     time.Duration(c.IntervalSec) * time.Second,
		Timeout:      time.Duration(c.TimeoutSec) * time.Second,
		MinRequests:  c.MinRequests,
		FailureRatio: c.FailureRatio,
	}
}

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildQueryEmbedder(
	ctx context.Context, cfg config.Config, store *dbValkey.Store, logger *zap.Logger,
) (domain.Embedder, *embeddinguc.BudgetTracker) {
	vecCfg := cfg.Embedding.Vectorizers[cfg.Index.Vectorizer]
	provName := vecCfg.Provider
	provCfg := cfg.Embedding.Providers[provName]

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Timeout:    time.Duration(provCfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	var embedder domain.Embedder = embcache.New(base, store, embcache.Options{
		Model:   vecCfg.Model,
		TTL:     time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour,
		Lookups: metrics.EmbeddingCacheTotal,
	}, logger)

	// Pass a nil interface, not a typed nil pointer, when no budget is configured.
	var (
		budget  embeddinguc.Budget
		tracker *embeddinguc.BudgetTracker
	)
	if b := provCfg.Budget; b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if b.Action == string(embeddinguc.BudgetActionReject) {
			action = embeddinguc.BudgetActionReject
		}
		tracker = embeddinguc.NewBudgetTracker(embeddinguc.BudgetLimits{
			Provider:     provName,
			DailyLimit:   b.DailyTokenLimit,
			MonthlyLimit: b.MonthlyTokenLimit,
			Action:       action,
		}, logger)
		tracker.WithStore(ctx, budgetrepo.New(store, 24*time.Hour))
		budget = tracker
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, vecCfg.Model, budget, logger)

	logger.Info("Query embedder created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
		zap.Bool("budget", budget != nil),
	)

	// Instruction is outermost so the cache key includes it.
	return domain.WithInstruction(embedder, vecCfg.QueryInstruction), tracker
}

// embeddingHealthChecker adapts an embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if err := domain.CheckHealth(ctx, h.embedder); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}
