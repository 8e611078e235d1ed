package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
	"github.com/kailas-cloud/bookrec/internal/metrics"
)

// searcher is the contract wrapped by the breaker.
type searcher interface {
	Search(ctx context.Context, query string, k int) ([]candidate.Hit, error)
}

// BreakerSettings tunes the circuit breaker. Zero values pick defaults.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state counting window
	Timeout      time.Duration // open -> half-open delay
	MinRequests  uint32        // requests in window before tripping is considered
	FailureRatio float64
}

func (s *BreakerSettings) applyDefaults() {
	if s.Name == "" {
		s.Name = "vector-index"
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}
}

// Breaker fails fast while the index keeps erroring.
type Breaker struct {
	inner  searcher
	cb     *gobreaker.CircuitBreaker[[]candidate.Hit]
	name   string
	logger *zap.Logger
}

// NewBreaker wraps a searcher with a circuit breaker.
func NewBreaker(inner searcher, s BreakerSettings, logger *zap.Logger) *Breaker {
	s.applyDefaults()
	metrics.IndexBreakerState.WithLabelValues(s.Name).Set(stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[[]candidate.Hit](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		// Caller cancellation and budget rejection say nothing about index health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, domain.ErrEmbeddingQuotaExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Vector index circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.IndexBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Breaker{inner: inner, cb: cb, name: s.Name, logger: logger}
}

// Search delegates through the breaker. An open circuit yields domain.ErrIndexUnavailable.
func (b *Breaker) Search(ctx context.Context, query string, k int) ([]candidate.Hit, error) {
	hits, err := b.cb.Execute(func() ([]candidate.Hit, error) {
		return b.inner.Search(ctx, query, k)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %w", b.name, domain.ErrIndexUnavailable, err)
		}
		return nil, err //nolint:wrapcheck // inner error already carries context
	}
	return hits, nil
}

// State reports the current breaker state ("closed", "half-open", "open").
func (b *Breaker) State() string { return b.cb.State().String() }

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
