package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog sources.
const (
	CatalogSourceCSV    = "csv"
	CatalogSourceValkey = "valkey"
)

// Config holds the bookrec service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recommend RecommendConfig `yaml:"recommend"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds operator API keys. Empty disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig limits recommendation requests per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 = unlimited
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Valkey connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig describes the pre-built description vector index.
type IndexConfig struct {
	Enabled      *bool         `yaml:"enabled"` // default true
	Name         string        `yaml:"name"`
	VectorField  string        `yaml:"vector_field"`
	PayloadField string        `yaml:"payload_field"`
	Vectorizer   string        `yaml:"vectorizer"` // key in embedding.vectorizers
	Breaker      BreakerConfig `yaml:"breaker"`
}

// IsEnabled reports whether vector search is configured on.
func (c IndexConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// BreakerConfig tunes the vector index circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	IntervalSec  int     `yaml:"interval_sec"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// CatalogConfig selects where books are loaded from.
type CatalogConfig struct {
	Source    string `yaml:"source"` // csv | valkey
	Path      string `yaml:"path"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RecommendConfig tunes the recommendation pipeline.
type RecommendConfig struct {
	PoolSize     int `yaml:"pool_size"`
	DefaultTopK  int `yaml:"default_top_k"`
	MaxTopK      int `yaml:"max_top_k"`
	FeaturedSize int `yaml:"featured_size"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Providers     map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers   map[string]VectorizerConfig `yaml:"vectorizers"`
	CacheTTLHours int                         `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	TimeoutSec int          `yaml:"timeout_sec"`
	Budget     BudgetConfig `yaml:"budget"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "bookrec:desc:idx"
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = CatalogSourceCSV
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "books_with_emotions.csv"
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = "bookrec:book:"
	}
	if c.Recommend.PoolSize <= 0 {
		c.Recommend.PoolSize = 200
	}
	if c.Recommend.DefaultTopK <= 0 {
		c.Recommend.DefaultTopK = 10
	}
	if c.Recommend.MaxTopK <= 0 {
		c.Recommend.MaxTopK = 50
	}
	if c.Recommend.FeaturedSize <= 0 {
		c.Recommend.FeaturedSize = 12
	}
	for name, p := range c.Embedding.Providers {
		if p.TimeoutSec <= 0 {
			p.TimeoutSec = 15
			c.Embedding.Providers[name] = p
		}
	}
	if c.Index.Vectorizer == "" && len(c.Embedding.Vectorizers) == 1 {
		for name := range c.Embedding.Vectorizers {
			c.Index.Vectorizer = name
		}
	}
}

// NeedsDatabase reports whether any enabled component talks to Valkey.
func (c *Config) NeedsDatabase() bool {
	return c.Index.IsEnabled() || c.Catalog.Source == CatalogSourceValkey
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.NeedsDatabase() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}

	switch c.Catalog.Source {
	case CatalogSourceCSV, CatalogSourceValkey:
	default:
		return fmt.Errorf("catalog.source must be %q or %q, got %q",
			CatalogSourceCSV, CatalogSourceValkey, c.Catalog.Source)
	}

	if c.Recommend.DefaultTopK > c.Recommend.MaxTopK {
		return fmt.Errorf("recommend.default_top_k (%d) exceeds recommend.max_top_k (%d)",
			c.Recommend.DefaultTopK, c.Recommend.MaxTopK)
	}

	for name, p := range c.Embedding.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}

	for name, v := range c.Embedding.Vectorizers {
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s.provider %q is not configured", name, v.Provider)
		}
	}

	if c.Index.IsEnabled() {
		if _, ok := c.Embedding.Vectorizers[c.Index.Vectorizer]; !ok {
			return fmt.Errorf("index.vectorizer %q is not configured in embedding.vectorizers", c.Index.Vectorizer)
		}
	}

	if r := c.Index.Breaker.FailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("index.breaker.failure_ratio must be within [0, 1], got %v", r)
	}
	return nil
}

// ShutdownTimeout returns the graceful shutdown window.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.HTTP.ShutdownSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and go run from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
