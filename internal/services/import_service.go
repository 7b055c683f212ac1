package services

import (
	"context"
	"errors"
	"fmt"

	"claimlens/internal/dataset"
	"claimlens/internal/log"
	"claimlens/internal/sources"
	"claimlens/internal/sources/parquetfile"
	"claimlens/internal/storage"
)

// ImportRecorder keeps an audit trail of imports.
type ImportRecorder interface {
	RecordImport(ctx context.Context, source string, rowCount int) (storage.ImportRun, error)
}

// ImportResult summarizes one import.
type ImportResult struct {
	Source string
	Rows   int
	Stats  dataset.Stats
}

// ImportService copies a claims table from one source into a writable
// store. Rows are validated with dataset.Load first, so a table that would
// fail at start-up is never written.
type ImportService struct {
	writer   sources.RowWriter
	recorder ImportRecorder
	opts     dataset.Options
	logger   *log.Logger
}

// NewImportService creates an import service. recorder may be nil.
func NewImportService(writer sources.RowWriter, recorder ImportRecorder, opts dataset.Options, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ImportService{
		writer:   writer,
		recorder: recorder,
		opts:     opts,
		logger:   logger.WithComponent(log.ComponentImport),
	}
}

// Import reads src, validates it and replaces the stored table with the
// canonical form of every record.
func (s *ImportService) Import(ctx context.Context, source string, src sources.RowReader) (ImportResult, error) {
	if s.writer == nil {
		return ImportResult{}, errors.New("import target is not writable")
	}

	ds, err := LoadDataset(ctx, src, s.opts)
	if err != nil {
		return ImportResult{}, err
	}

	n, err := s.writer.ReplaceRows(ctx, ds.CanonicalRows())
	if err != nil {
		return ImportResult{}, fmt.Errorf("write claims: %w", err)
	}

	if s.recorder != nil {
		if _, err := s.recorder.RecordImport(ctx, source, n); err != nil {
			s.logger.WarnContext(ctx, "Failed to record import run", log.FieldSource, source, log.FieldError, err)
		}
	}

	st := ds.Stats()
	fields := log.NewFields().
		WithOperation(log.OpImport).
		WithDataset(st.Rows, st.Months, st.Payers, st.Categories, st.TotalPaid)
	fields[log.FieldSource] = source
	s.logger.InfoContext(ctx, "Claims imported", fields.ToSlice()...)

	return ImportResult{Source: source, Rows: n, Stats: st}, nil
}

// ExportParquet loads src and writes it to filename as Parquet.
func ExportParquet(ctx context.Context, src sources.RowReader, opts dataset.Options, filename string) (int, error) {
	ds, err := LoadDataset(ctx, src, opts)
	if err != nil {
		return 0, err
	}
	n, err := parquetfile.Export(ds, filename)
	if err != nil {
		return 0, fmt.Errorf("export parquet: %w", err)
	}
	return n, nil
}
