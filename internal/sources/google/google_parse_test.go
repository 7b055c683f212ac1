package google

import (
	"errors"
	"testing"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

func TestParseValues(t *testing.T) {
	values := [][]interface{}{
		{"MONTH", "PAYER", "SERVICE_CATEGORY", "CLAIM_SPECIALTY", "PAID_AMOUNT"},
		{"2024-01-01", "Acme", "Inpatient", "cardio;ortho", 120.5},
		{},
		{"", "", "", "", ""},
		{"2024-02-01", "Beta", "Pharmacy"},
		{"2024-02-01", "Beta", "Pharmacy", "", "7"},
	}
	rows, err := parseValues(values, sources.DefaultColumns())
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].PaidAmount != "120.5" || rows[0].Specialty != "cardio;ortho" {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	// Sheets trims trailing empty cells, so short rows surface as missing fields.
	if rows[1].PaidAmount != "" {
		t.Fatalf("expected blank amount, got %q", rows[1].PaidAmount)
	}
	if _, err := dataset.Load(rows, dataset.DefaultOptions()); !errors.Is(err, core.ErrMissingField) {
		t.Fatalf("expected missing field on short row, got %v", err)
	}
}

func TestParseValuesMissingHeader(t *testing.T) {
	values := [][]interface{}{{"MONTH", "PAYER"}, {"2024-01-01", "Acme"}}
	if _, err := parseValues(values, sources.DefaultColumns()); !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	rows, err := parseValues(nil, sources.DefaultColumns())
	if err != nil || len(rows) != 0 {
		t.Fatalf("empty sheet: %v %v", rows, err)
	}
}
