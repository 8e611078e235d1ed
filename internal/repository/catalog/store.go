package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/db"
	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// DefaultKeyPrefix namespaces catalog hashes: bookrec:book:<isbn13>.
const DefaultKeyPrefix = "bookrec:book:"

// hashReader is the consumer interface for loading the catalog (ISP).
type hashReader interface {
	ScanHashes(ctx context.Context, pattern string, visit func(db.Hash) error) error
}

// hashWriter is the consumer interface for seeding the catalog (ISP).
type hashWriter interface {
	PutHashes(ctx context.Context, hashes []db.Hash) (int, error)
}

// LoadStore reads every catalog hash under prefix into memory, ordered by ISBN.
// A column is part of the schema when any hash carries it.
func LoadStore(ctx context.Context, s hashReader, prefix string, logger *zap.Logger) (*Memory, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	var (
		cols    columns
		records []Record
	)
	err := s.ScanHashes(ctx, prefix+"*", func(h db.Hash) error {
		rec := Record(h.Fields)
		if rec[FieldISBN13] == "" {
			rec[FieldISBN13] = strings.TrimPrefix(h.Key, prefix)
		}
		for name := range rec {
			cols.observe(name)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w: %w", domain.ErrCatalogUnavailable, err)
	}

	books, skipped := buildBooks(records, logger)
	slices.SortStableFunc(books, func(a, b book.Book) int {
		return cmp.Compare(a.ISBN13(), b.ISBN13())
	})

	logger.Info("Catalog loaded from store",
		zap.String("prefix", prefix),
		zap.Int("books", len(books)),
		zap.Int("skipped", skipped),
	)
	return NewMemory(books, cols.schema()), nil
}

// WriteStore writes records as hashes under prefix. Records without a valid isbn13 are skipped.
// Returns the number of hashes written.
func WriteStore(ctx context.Context, s hashWriter, prefix string, records []Record) (int, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	hashes := make([]db.Hash, 0, len(records))
	for _, rec := range records {
		id, err := rec.ISBN13()
		if err != nil {
			continue
		}
		isbn := strconv.FormatInt(id, 10)
		fields := rec.fields()
		fields[FieldISBN13] = isbn
		hashes = append(hashes, db.Hash{Key: prefix + isbn, Fields: fields})
	}

	written, err := s.PutHashes(ctx, hashes)
	if err != nil {
		return written, fmt.Errorf("write catalog: %w", err)
	}
	return written, nil
}
