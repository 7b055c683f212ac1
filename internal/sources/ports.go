// Package sources defines the inbound ports that feed raw claim rows into
// dataset.Load, and the column mapping shared by tabular adapters.
package sources

import (
	"context"
	"fmt"
	"strings"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
)

// Ports for inbound adapters.
type (
	// RowReader returns every raw row of a claims table. It is called once
	// at start-up; the result is handed to dataset.Load.
	RowReader interface {
		ReadRows(ctx context.Context) ([]dataset.Row, error)
	}

	// RowWriter replaces the stored claims table with rows.
	RowWriter interface {
		ReplaceRows(ctx context.Context, rows []dataset.Row) (int, error)
	}
)

// Columns names the input columns for each claim field.
type Columns struct {
	Month           string `yaml:"month"`
	Payer           string `yaml:"payer"`
	ServiceCategory string `yaml:"service_category"`
	Specialty       string `yaml:"claim_specialty"`
	PaidAmount      string `yaml:"paid_amount"`
}

// DefaultColumns matches the upper-case headers of the original extract.
func DefaultColumns() Columns {
	return Columns{
		Month:           "MONTH",
		Payer:           "PAYER",
		ServiceCategory: "SERVICE_CATEGORY",
		Specialty:       "CLAIM_SPECIALTY",
		PaidAmount:      "PAID_AMOUNT",
	}
}

// WithDefaults fills blank names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	if c.Month == "" {
		c.Month = d.Month
	}
	if c.Payer == "" {
		c.Payer = d.Payer
	}
	if c.ServiceCategory == "" {
		c.ServiceCategory = d.ServiceCategory
	}
	if c.Specialty == "" {
		c.Specialty = d.Specialty
	}
	if c.PaidAmount == "" {
		c.PaidAmount = d.PaidAmount
	}
	return c
}

// Mapping holds the positions of each field in a header row. Specialty is
// -1 when the column is absent, which loads every record as "missing".
type Mapping struct {
	month, payer, category, specialty, amount int
}

// MapHeader locates the configured columns in header, case-insensitively.
// A missing required column is reported as an ingest error.
func MapHeader(header []string, cols Columns) (Mapping, error) {
	cols = cols.WithDefaults()
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	find := func(name string) int {
		if i, ok := idx[strings.ToLower(strings.TrimSpace(name))]; ok {
			return i
		}
		return -1
	}

	m := Mapping{
		month:     find(cols.Month),
		payer:     find(cols.Payer),
		category:  find(cols.ServiceCategory),
		specialty: find(cols.Specialty),
		amount:    find(cols.PaidAmount),
	}
	required := []struct {
		pos   int
		field string
		name  string
	}{
		{m.month, dataset.FieldMonth, cols.Month},
		{m.payer, dataset.FieldPayer, cols.Payer},
		{m.category, dataset.FieldServiceCategory, cols.ServiceCategory},
		{m.amount, dataset.FieldPaidAmount, cols.PaidAmount},
	}
	for _, r := range required {
		if r.pos < 0 {
			return Mapping{}, &core.IngestError{
				Field: r.field,
				Value: r.name,
				Err:   fmt.Errorf("%w %q", core.ErrMissingColumn, r.name),
			}
		}
	}
	return m, nil
}

// Row picks the mapped fields out of one record. Short records yield
// blank fields, which dataset.Load rejects where they are required.
func (m Mapping) Row(record []string) dataset.Row {
	get := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}
	return dataset.Row{
		Month:           get(m.month),
		Payer:           get(m.payer),
		ServiceCategory: get(m.category),
		Specialty:       get(m.specialty),
		PaidAmount:      get(m.amount),
	}
}
