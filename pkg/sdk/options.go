package bookrec

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	csvPath       string
	catalogPrefix string

	embedder  Embedder
	model     string
	indexName string

	poolSize    int
	defaultTopK int

	logger     *slog.Logger
	metricsReg prometheus.Registerer

	// index replaces the Valkey vector index; set only in tests.
	index recommenduc.VectorIndex
}

// WithValkey connects the client to a Valkey instance with valkey-search.
// It enables vector search (with WithEmbedder) and the Valkey catalog.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCatalogCSV loads the catalog from a CSV file instead of Valkey hashes.
func WithCatalogCSV(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.csvPath = path
	})
}

// WithCatalogPrefix sets the hash key prefix for the Valkey catalog.
// Default: "bookrec:book:".
func WithCatalogPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPrefix = prefix
	})
}

// WithEmbedder sets the query embedding provider. Required for Recommend to return books.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEmbeddingModel names the model behind the Embedder. Cached query
// vectors are keyed by it, so changing models starts a fresh cache.
func WithEmbeddingModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = model
	})
}

// WithIndexName sets the FT index over book descriptions.
// Default: "bookrec:desc:idx".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithPoolSize sets how many candidates are requested from the index. Default: 200.
func WithPoolSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.poolSize = n
	})
}

// WithDefaultTopK sets the result count used when Request.TopK is zero. Default: 10.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = k
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts, durations and
// recommend outcomes) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
