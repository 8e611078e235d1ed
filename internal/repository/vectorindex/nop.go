package vectorindex

import (
	"context"

	"github.com/kailas-cloud/bookrec/internal/domain/candidate"
)

// Nop stands in when the index is disabled or failed to initialize.
type Nop struct{}

// Search always returns no hits.
func (Nop) Search(context.Context, string, int) ([]candidate.Hit, error) { return nil, nil }
