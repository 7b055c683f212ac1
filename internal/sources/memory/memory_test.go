package memory

import (
	"context"
	"errors"
	"testing"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
)

func TestMemoryStoreReplaceAndRead(t *testing.T) {
	s := New()
	if _, err := s.ReadRows(context.Background()); !errors.Is(err, core.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}

	in := []dataset.Row{{Month: "2024-01", Payer: "A", ServiceCategory: "ER", PaidAmount: "1"}}
	n, err := s.ReplaceRows(context.Background(), in)
	if err != nil || n != 1 {
		t.Fatalf("unexpected replace: n=%d err=%v", n, err)
	}
	in[0].Payer = "mutated"

	rows, err := s.ReadRows(context.Background())
	if err != nil || len(rows) != 1 || rows[0].Payer != "A" {
		t.Fatalf("unexpected rows: %+v err=%v", rows, err)
	}
}

func TestSampleLoads(t *testing.T) {
	rows, err := NewSample().ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	ds, err := dataset.Load(rows, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("sample does not load: %v", err)
	}
	if ds.MonthCount() != 4 || len(ds.Payers()) != 3 {
		t.Fatalf("unexpected sample shape: %+v", ds.Stats())
	}
}
