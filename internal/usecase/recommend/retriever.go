package recommend

import (
	"cmp"
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

// Outcome classifies a retrieval.
type Outcome string

const (
	// OutcomeOK means at least one candidate was retrieved.
	OutcomeOK Outcome = "ok"
	// OutcomeEmpty means the index answered with nothing usable.
	OutcomeEmpty Outcome = "empty"
	// OutcomeDegraded means the index failed and the result is empty by fallback.
	OutcomeDegraded Outcome = "degraded"
)

// Retrieval is the candidate pool for one query.
type Retrieval struct {
	Candidates []candidate.Candidate
	Outcome    Outcome
	Reason     string // set when degraded
	Skipped    int    // malformed payloads
	Duplicates int
}

// Retriever turns index hits into a deduplicated, distance-ordered candidate pool.
type Retriever struct {
	index  VectorIndex
	logger *zap.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(index VectorIndex, logger *zap.Logger) *Retriever {
	return &Retriever{index: index, logger: logger}
}

// Retrieve asks the index for poolSize neighbours. Index errors never propagate:
// they yield an empty, degraded retrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string, poolSize int) Retrieval {
	if poolSize <= 0 {
		return Retrieval{Outcome: OutcomeEmpty}
	}

	hits, err := r.index.Search(ctx, query, poolSize)
	if err != nil {
		r.logger.Warn("Vector search failed, returning no candidates",
			zap.Int("pool_size", poolSize),
			zap.Error(err),
		)
		return Retrieval{Outcome: OutcomeDegraded, Reason: err.Error()}
	}

	ret := Collect(hits, poolSize)
	if ret.Skipped > 0 {
		r.logger.Warn("Skipped malformed index payloads", zap.Int("skipped", ret.Skipped))
	}
	r.logger.Debug("Candidates retrieved",
		zap.Int("hits", len(hits)),
		zap.Int("candidates", len(ret.Candidates)),
		zap.Int("duplicates", ret.Duplicates),
	)
	return ret
}

// Collect parses hits, keeps the first occurrence of each identifier in index
// order, stable-sorts by ascending distance and truncates to poolSize.
func Collect(hits []candidate.Hit, poolSize int) Retrieval {
	var ret Retrieval
	seen := make(map[int64]struct{}, len(hits))
	cands := make([]candidate.Candidate, 0, len(hits))

	for _, h := range hits {
		id, err := candidate.ParseID(h.Payload)
		if err != nil {
			ret.Skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			ret.Duplicates++
			continue
		}
		seen[id] = struct{}{}
		cands = append(cands, candidate.Candidate{ID: id, Distance: h.Distance})
	}

	slices.SortStableFunc(cands, func(a, b candidate.Candidate) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if poolSize >= 0 && len(cands) > poolSize {
		cands = cands[:poolSize]
	}

	ret.Candidates = cands
	ret.Outcome = OutcomeOK
	if len(cands) == 0 {
		ret.Outcome = OutcomeEmpty
	}
	return ret
}
