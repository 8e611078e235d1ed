// Package embcache keeps query vectors in Valkey so a repeated query costs no tokens.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/bookrec/internal/db"
	"github.com/kailas-cloud/bookrec/internal/domain"
)

// DefaultPrefix namespaces cached query vectors in Valkey.
const DefaultPrefix = "bookrec:emb_cache:"

var errCorrupt = errors.New("corrupt cache entry")

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tune cache keys and expiry. Zero values pick defaults.
type Options struct {
	// Prefix is prepended to the key. Defaults to DefaultPrefix.
	Prefix string
	// Model is part of the key, so switching models never serves stale vectors.
	Model string
	// TTL of a cached vector; zero keeps it forever.
	TTL time.Duration
	// Lookups counts cache lookups by label "result" (hit or miss). Optional.
	Lookups *prometheus.CounterVec
}

// Embedder serves query vectors from the cache and falls back to inner on a miss.
// Concurrent misses for the same text share one inner call.
type Embedder struct {
	inner   domain.Embedder
	kv      kv
	opts    Options
	flights singleflight.Group
	log     *zap.Logger
}

// New wraps inner with a vector cache stored in s.
func New(inner domain.Embedder, s kv, opts Options, log *zap.Logger) *Embedder {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Model != "" && !strings.HasSuffix(opts.Prefix, opts.Model+":") {
		opts.Prefix += opts.Model + ":"
	}
	return &Embedder{inner: inner, kv: s, opts: opts, log: log}
}

// Embed returns the cached vector with zero tokens, or the inner result on a miss.
// The cache never fails a call: read and write errors are logged and skipped.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := e.key(text)

	if vec, ok := e.lookup(ctx, key); ok {
		e.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	e.count("miss")

	leader := false
	v, err, _ := e.flights.Do(key, func() (any, error) {
		leader = true
		res, err := e.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		e.store(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}

	res := v.(domain.EmbeddingResult) //nolint:forcetypeassert // only EmbeddingResult is stored
	if !leader {
		// Tokens were paid by the call that led the flight.
		return domain.EmbeddingResult{Embedding: res.Embedding}, nil
	}
	return res, nil
}

// HealthCheck reports the inner embedder's health.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return domain.CheckHealth(ctx, e.inner) //nolint:wrapcheck // transparent decorator
}

// key hashes the whitespace-normalized text.
func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return e.opts.Prefix + hex.EncodeToString(sum[:])
}

func (e *Embedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := e.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		e.log.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decode(data)
	if err != nil {
		e.log.Warn("Embedding cache entry ignored", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (e *Embedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.kv.Put(ctx, key, encode(vec), e.opts.TTL); err != nil {
		e.log.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string) {
	if e.opts.Lookups != nil {
		e.opts.Lookups.WithLabelValues(result).Inc()
	}
}

// encode packs the vector as little-endian float32.
func encode(vec []float32) []byte {
	buf := make([]byte, 0, 4*len(vec))
	for _, f := range vec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decode(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", errCorrupt, len(data))
	}
	vec := make([]float32, 0, len(data)/4)
	for b := range slices.Chunk(data, 4) {
		vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return vec, nil
}
