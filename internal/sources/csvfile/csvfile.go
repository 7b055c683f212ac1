// Package csvfile reads the claims table from a delimited text file.
package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

// Reader loads claim rows from a CSV file with a header row.
type Reader struct {
	path      string
	separator rune
	columns   sources.Columns
}

var _ sources.RowReader = (*Reader)(nil)

// Option configures a Reader.
type Option func(*Reader)

// WithSeparator sets the field separator (default ',').
func WithSeparator(sep rune) Option {
	return func(r *Reader) {
		if sep != 0 {
			r.separator = sep
		}
	}
}

// WithColumns sets the header names of the claim fields.
func WithColumns(cols sources.Columns) Option {
	return func(r *Reader) { r.columns = cols.WithDefaults() }
}

// New returns a reader for path.
func New(path string, opts ...Option) *Reader {
	r := &Reader{path: path, separator: ',', columns: sources.DefaultColumns()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadRows reads the whole file.
func (r *Reader) ReadRows(ctx context.Context) ([]dataset.Row, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open claims file: %w", err)
	}
	defer file.Close()

	return Decode(ctx, file, r.separator, r.columns)
}

// Decode parses CSV from in. The first record is the header.
func Decode(ctx context.Context, in io.Reader, separator rune, cols sources.Columns) ([]dataset.Row, error) {
	bufReader := bufio.NewReaderSize(in, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.Comma = separator
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.IngestError{Err: core.ErrNoRows}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	mapping, err := sources.MapHeader(header, cols)
	if err != nil {
		return nil, err
	}

	var rows []dataset.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(rows)+1, err)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, mapping.Row(record))

		if len(rows)%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
