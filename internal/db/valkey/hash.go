package valkey

import (
	"context"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/bookrec/internal/db"
)

const (
	// pipelineBatch bounds the commands sent in one DoMulti round-trip.
	pipelineBatch = 500
	// scanCount is the COUNT hint for SCAN; a page is fetched with one HGETALL pipeline.
	scanCount = 500
)

// PutHashes writes hashes with pipelined HSET, pipelineBatch at a time.
// On error the returned count covers the batches that completed.
func (s *Store) PutHashes(ctx context.Context, hashes []db.Hash) (int, error) {
	written := 0
	for batch := range slices.Chunk(hashes, pipelineBatch) {
		cmds := make(rueidis.Commands, 0, len(batch))
		for _, h := range batch {
			cmd := s.client.B().Hset().Key(h.Key).FieldValue()
			for f, v := range h.Fields {
				cmd = cmd.FieldValue(f, v)
			}
			cmds = append(cmds, cmd.Build())
		}
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			if err := res.Error(); err != nil {
				return written, &db.Error{Cmd: "HSET", Key: batch[i].Key, Err: err}
			}
		}
		written += len(batch)
	}
	return written, nil
}

// ScanHashes walks SCAN pages and loads each page with one HGETALL pipeline.
func (s *Store) ScanHashes(ctx context.Context, pattern string, visit func(db.Hash) error) error {
	var cursor uint64
	for {
		page, err := s.client.Do(ctx,
			s.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build(),
		).AsScanEntry()
		if err != nil {
			return &db.Error{Cmd: "SCAN", Err: err}
		}
		if err := s.visitPage(ctx, page.Elements, visit); err != nil {
			return err
		}
		if cursor = page.Cursor; cursor == 0 {
			return nil
		}
	}
}

func (s *Store) visitPage(ctx context.Context, keys []string, visit func(db.Hash) error) error {
	if len(keys) == 0 {
		return nil
	}
	cmds := make(rueidis.Commands, len(keys))
	for i, k := range keys {
		cmds[i] = s.client.B().Hgetall().Key(k).Build()
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		fields, err := res.AsStrMap()
		if err != nil {
			return &db.Error{Cmd: "HGETALL", Key: keys[i], Err: err}
		}
		if len(fields) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		if err := visit(db.Hash{Key: keys[i], Fields: fields}); err != nil {
			return err
		}
	}
	return nil
}
