// Package db declares the storage contracts bookrec needs from Valkey.
package db

import (
	"context"
	"time"
)

// Store is the full Valkey facade built by the binaries. Packages take one
// of the narrow interfaces below instead.
//
//nolint:interfacebloat // facade; consumers take the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Hash is one stored hash, a catalog book in practice.
type Hash struct {
	Key    string
	Fields map[string]string
}

// HashStore keeps catalog books as hashes.
type HashStore interface {
	// PutHashes writes hashes in pipelined batches and returns how many were written.
	PutHashes(ctx context.Context, hashes []Hash) (int, error)
	// ScanHashes calls visit for every non-empty hash whose key matches pattern.
	// Order is unspecified. An error from visit stops the scan and is returned.
	ScanHashes(ctx context.Context, pattern string, visit func(Hash) error) error
}

// KVStore holds the embedding cache and budget counters.
type KVStore interface {
	// Get returns ErrKeyNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value; ttl <= 0 means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr adds by to a counter and returns the new value. The counter gets
	// ttl only when it has no expiry yet.
	Incr(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error)
}

// Searcher runs vector similarity queries over a pre-built FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
