package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// ReadRecords parses a catalog CSV with a header row.
// "average_rating" is accepted for "rating"; unknown columns are carried as is.
func ReadRecords(r io.Reader) ([]Record, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("catalog csv: missing header")
		}
		return nil, nil, fmt.Errorf("catalog csv header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	hasISBN := false
	hasRating := slices.Contains(names, FieldRating)
	for i, name := range names {
		if name == fieldAverageRating && !hasRating {
			name = FieldRating
		}
		if name == FieldISBN13 {
			hasISBN = true
		}
		names[i] = name
	}
	if !hasISBN {
		return nil, nil, fmt.Errorf("catalog csv: no %s column", FieldISBN13)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("catalog csv row %d: %w", len(records)+2, err)
		}
		rec := make(Record, len(names))
		for i, name := range names {
			if i < len(row) && name != "" {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, names, nil
}

// LoadCSV reads a catalog CSV file into memory.
// Rows with an unparseable isbn13 are skipped with a warning.
func LoadCSV(path string, logger *zap.Logger) (*Memory, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, logger)
}

// ReadCSV builds an in-memory catalog from CSV content.
func ReadCSV(r io.Reader, logger *zap.Logger) (*Memory, error) {
	records, header, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}

	var cols columns
	for _, name := range header {
		cols.observe(name)
	}

	books, skipped := buildBooks(records, logger)
	logger.Info("Catalog loaded from CSV",
		zap.Int("books", len(books)),
		zap.Int("skipped", skipped),
	)
	return NewMemory(books, cols.schema()), nil
}

func buildBooks(records []Record, logger *zap.Logger) ([]book.Book, int) {
	books := make([]book.Book, 0, len(records))
	skipped := 0
	for _, rec := range records {
		b, err := rec.Book()
		if err != nil {
			skipped++
			logger.Warn("Skipping catalog row", zap.Error(err))
			continue
		}
		books = append(books, b)
	}
	return books, skipped
}
