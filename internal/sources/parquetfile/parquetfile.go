// Package parquetfile reads and writes the claims table as Parquet.
//
// The file schema is fixed; column names do not follow the CSV column
// configuration. Amounts are stored as decimal text so that no precision is
// lost between export and reload.
package parquetfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

// ClaimRow is the on-disk row layout.
type ClaimRow struct {
	Month           string  `parquet:"month"`
	Payer           string  `parquet:"payer"`
	ServiceCategory string  `parquet:"service_category"`
	Specialty       *string `parquet:"claim_specialty,optional"`
	PaidAmount      string  `parquet:"paid_amount"`
}

const readBatch = 8192

// Reader loads claim rows from a Parquet file.
type Reader struct {
	path string
}

var _ sources.RowReader = (*Reader)(nil)

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadRows reads every row group of the file.
func (r *Reader) ReadRows(ctx context.Context) ([]dataset.Row, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[ClaimRow](f)
	defer reader.Close()

	total := reader.NumRows()
	if total == 0 {
		return nil, &core.IngestError{Err: core.ErrNoRows}
	}

	rows := make([]dataset.Row, 0, total)
	buf := make([]ClaimRow, readBatch)
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			rows = append(rows, toRow(buf[i]))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read parquet: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func toRow(c ClaimRow) dataset.Row {
	row := dataset.Row{
		Month:           c.Month,
		Payer:           c.Payer,
		ServiceCategory: c.ServiceCategory,
		PaidAmount:      c.PaidAmount,
	}
	if c.Specialty != nil {
		row.Specialty = *c.Specialty
	}
	return row
}

// FromRow converts a raw row into its stored form. A blank specialty is
// written as null.
func FromRow(r dataset.Row) ClaimRow {
	row := ClaimRow{
		Month:           r.Month,
		Payer:           r.Payer,
		ServiceCategory: r.ServiceCategory,
		PaidAmount:      r.PaidAmount,
	}
	if strings.TrimSpace(r.Specialty) != "" {
		s := r.Specialty
		row.Specialty = &s
	}
	return row
}

// Writer writes ClaimRow records to a zstd-compressed Parquet file.
type Writer struct {
	file   *os.File
	writer *parquet.GenericWriter[ClaimRow]
	count  int
}

// NewWriter creates filename, truncating it if it exists.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[ClaimRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("claimlens", "1.0", ""),
	)
	return &Writer{file: file, writer: writer}, nil
}

// Write appends a batch of rows.
func (w *Writer) Write(rows []ClaimRow) (int, error) {
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// WriteRows converts and appends raw rows.
func (w *Writer) WriteRows(rows []dataset.Row) (int, error) {
	out := make([]ClaimRow, len(rows))
	for i, r := range rows {
		out[i] = FromRow(r)
	}
	return w.Write(out)
}

// Close flushes the final row group and closes the file.
func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of rows written so far.
func (w *Writer) Count() int { return w.count }

// Export writes the canonical rows of ds to filename.
func Export(ds *dataset.Dataset, filename string) (int, error) {
	w, err := NewWriter(filename)
	if err != nil {
		return 0, err
	}
	n, err := w.WriteRows(ds.CanonicalRows())
	if err != nil {
		w.Close()
		return n, err
	}
	if err := w.Close(); err != nil {
		return n, err
	}
	return n, nil
}
