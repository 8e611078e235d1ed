package candidate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPayload signals an index payload without a leading numeric identifier.
var ErrMalformedPayload = errors.New("malformed payload")

// Hit is one raw neighbour reported by a vector index.
// Payload is the indexed text; Distance is lower-is-closer.
type Hit struct {
	Payload  string
	Distance float64
}

// Candidate is a retrieved catalog identifier with its index distance.
// Lower Distance means a closer match.
type Candidate struct {
	ID       int64
	Distance float64
}

// ParseID extracts the catalog identifier from an index payload.
// The payload is stripped of surrounding double quotes and the first
// whitespace-delimited token must be a base-10 integer.
func ParseID(payload string) (int64, error) {
	fields := strings.Fields(strings.Trim(payload, `"`))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty payload: %w", ErrMalformedPayload)
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token %q: %w", fields[0], ErrMalformedPayload)
	}
	return id, nil
}
