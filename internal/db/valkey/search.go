package valkey

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/bookrec/internal/db"
)

const (
	defaultVectorField = "vector"
	scoreField         = "__vector_score"
)

// SearchKNN runs FT.SEARCH with a KNN clause. Entries keep engine order and
// raw distance; hits without a parseable score are dropped.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := knnArgs(q)
	if err != nil {
		return nil, err
	}

	total, docs, err := s.client.Do(ctx, s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()).AsFtSearch()
	if err != nil {
		if serverErrContains(err, "no such index") || serverErrContains(err, "not found") {
			return nil, &db.Error{Cmd: "FT.SEARCH", Key: q.IndexName, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Cmd: "FT.SEARCH", Key: q.IndexName, Err: err}
	}

	res := &db.SearchResult{Total: int(total), Entries: make([]db.SearchEntry, 0, len(docs))}
	for _, d := range docs {
		raw, ok := d.Doc[scoreField]
		if !ok {
			continue
		}
		dist, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		delete(d.Doc, scoreField)
		res.Entries = append(res.Entries, db.SearchEntry{Key: d.Key, Distance: dist, Fields: d.Doc})
	}
	return res, nil
}

// knnArgs builds: <index> "*=>[KNN k @field $BLOB]" [RETURN n f...] PARAMS 2 BLOB <vec> LIMIT 0 k DIALECT 2.
func knnArgs(q *db.KNNQuery) ([]string, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("knn: vector is required")
	case q.K <= 0:
		return nil, fmt.Errorf("knn: k must be positive, got %d", q.K)
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}
	k := strconv.Itoa(q.K)

	args := []string{q.IndexName, "*=>[KNN " + k + " @" + field + " $BLOB]"}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	// LIMIT defaults to 10; the pool is larger.
	return append(args,
		"PARAMS", "2", "BLOB", float32Blob(q.Vector),
		"LIMIT", "0", k,
		"DIALECT", "2",
	), nil
}

// float32Blob encodes v as little-endian FLOAT32, the layout of the index's vector field.
func float32Blob(v []float32) string {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return string(buf)
}
