// Package memory is an in-process row store used for demos and tests.
package memory

import (
	"context"
	"sync"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

type Store struct {
	mu   sync.Mutex
	rows []dataset.Row
}

var (
	_ sources.RowReader = (*Store)(nil)
	_ sources.RowWriter = (*Store)(nil)
)

func New(rows ...dataset.Row) *Store {
	return &Store{rows: append([]dataset.Row(nil), rows...)}
}

// NewSample returns a store seeded with a small three-payer table spanning
// four months.
func NewSample() *Store {
	return New(SampleRows()...)
}

// ReadRows returns a copy of the stored rows.
func (s *Store) ReadRows(_ context.Context) ([]dataset.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, &core.IngestError{Err: core.ErrNoRows}
	}
	return append([]dataset.Row(nil), s.rows...), nil
}

// ReplaceRows swaps the stored rows.
func (s *Store) ReplaceRows(_ context.Context, rows []dataset.Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]dataset.Row(nil), rows...)
	return len(s.rows), nil
}

// SampleRows is the demo table behind NewSample.
func SampleRows() []dataset.Row {
	return []dataset.Row{
		{Month: "2024-01-01", Payer: "Acme Health", ServiceCategory: "Inpatient", Specialty: "Cardiology;Internal Medicine", PaidAmount: "1840.00"},
		{Month: "2024-01-01", Payer: "Beta Mutual", ServiceCategory: "Outpatient", Specialty: "Dermatology", PaidAmount: "215.40"},
		{Month: "2024-01-01", Payer: "Civic Care", ServiceCategory: "Pharmacy", Specialty: "", PaidAmount: "62.10"},
		{Month: "2024-02-01", Payer: "Acme Health", ServiceCategory: "Outpatient", Specialty: "Orthopedics", PaidAmount: "430.00"},
		{Month: "2024-02-01", Payer: "Beta Mutual", ServiceCategory: "Inpatient", Specialty: "Cardiology", PaidAmount: "2975.55"},
		{Month: "2024-02-01", Payer: "Civic Care", ServiceCategory: "Emergency", Specialty: "Emergency Medicine;Radiology", PaidAmount: "780.00"},
		{Month: "2024-03-01", Payer: "Acme Health", ServiceCategory: "Emergency", Specialty: "Emergency Medicine", PaidAmount: "655.25"},
		{Month: "2024-03-01", Payer: "Acme Health", ServiceCategory: "Pharmacy", Specialty: "", PaidAmount: "48.90"},
		{Month: "2024-03-01", Payer: "Beta Mutual", ServiceCategory: "Outpatient", Specialty: "Radiology;Orthopedics", PaidAmount: "512.00"},
		{Month: "2024-04-01", Payer: "Civic Care", ServiceCategory: "Inpatient", Specialty: "Neurology", PaidAmount: "3120.75"},
		{Month: "2024-04-01", Payer: "Beta Mutual", ServiceCategory: "Pharmacy", Specialty: "Cardiology", PaidAmount: "91.30"},
		{Month: "2024-04-01", Payer: "Acme Health", ServiceCategory: "Outpatient", Specialty: "Dermatology;Dermatology", PaidAmount: "188.00"},
	}
}
