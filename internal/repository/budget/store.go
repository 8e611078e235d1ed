// Package budget persists embedding token counters in Valkey.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/bookrec/internal/db"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Incr(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error)
}

// Store keeps one INCRBY counter per budget window. A counter outlives its
// window by grace so a restart near midnight still sees yesterday's total.
type Store struct {
	kv    kv
	grace time.Duration
	now   func() time.Time
}

// New creates a budget store.
func New(s kv, grace time.Duration) *Store {
	return &Store{kv: s, grace: grace, now: time.Now}
}

// Add increments key. The first write fixes its expiry at windowEnd plus grace.
func (s *Store) Add(ctx context.Context, key string, tokens int64, windowEnd time.Time) error {
	ttl := max(windowEnd.Sub(s.now()), 0) + s.grace
	if _, err := s.kv.Incr(ctx, key, tokens, ttl); err != nil {
		return fmt.Errorf("budget add %s: %w", key, err)
	}
	return nil
}

// Load returns the counter, 0 when the key does not exist.
func (s *Store) Load(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("budget load %s: %w", key, err)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget load %s: %w", key, err)
	}
	return n, nil
}
