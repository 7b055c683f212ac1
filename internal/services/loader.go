package services

import (
	"context"
	"fmt"
	"time"

	"claimlens/internal/analytics"
	"claimlens/internal/dataset"
	"claimlens/internal/log"
	"claimlens/internal/sources"
)

// LoadDataset reads every row from reader and validates it into a dataset.
func LoadDataset(ctx context.Context, reader sources.RowReader, opts dataset.Options) (*dataset.Dataset, error) {
	rows, err := reader.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	ds, err := dataset.Load(rows, opts)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	return ds, nil
}

// LoadEngine loads the dataset and builds the query engine over it. It is
// the start-up path shared by every binary.
func LoadEngine(ctx context.Context, logger *log.Logger, reader sources.RowReader, opts dataset.Options) (*analytics.Engine, error) {
	start := time.Now()
	ds, err := LoadDataset(ctx, reader, opts)
	if err != nil {
		return nil, err
	}
	engine := analytics.New(ds)

	st := ds.Stats()
	fields := log.NewFields().
		WithOperation(log.OpLoad).
		WithDataset(st.Rows, st.Months, st.Payers, st.Categories, st.TotalPaid)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	logger.InfoContext(ctx, "Claims dataset loaded", fields.ToSlice()...)

	return engine, nil
}
