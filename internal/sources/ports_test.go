package sources

import (
	"errors"
	"testing"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
)

func TestMapHeader(t *testing.T) {
	header := []string{" paid_amount ", "Month", "PAYER", "service_category", "extra"}
	m, err := MapHeader(header, DefaultColumns())
	if err != nil {
		t.Fatalf("MapHeader: %v", err)
	}
	row := m.Row([]string{"3.5", "2020-01", "A", "ER", "ignored"})
	want := dataset.Row{Month: "2020-01", Payer: "A", ServiceCategory: "ER", PaidAmount: "3.5"}
	if row != want {
		t.Fatalf("row = %+v, want %+v", row, want)
	}

	short := m.Row([]string{"1"})
	if short.PaidAmount != "1" || short.Month != "" {
		t.Fatalf("short row = %+v", short)
	}
}

func TestMapHeaderMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		field  string
	}{
		{"no month", []string{"PAYER", "SERVICE_CATEGORY", "PAID_AMOUNT"}, dataset.FieldMonth},
		{"no payer", []string{"MONTH", "SERVICE_CATEGORY", "PAID_AMOUNT"}, dataset.FieldPayer},
		{"no amount", []string{"MONTH", "PAYER", "SERVICE_CATEGORY"}, dataset.FieldPaidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapHeader(tt.header, DefaultColumns())
			var ie *core.IngestError
			if !errors.As(err, &ie) || ie.Field != tt.field || !errors.Is(err, core.ErrMissingColumn) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestColumnsWithDefaults(t *testing.T) {
	c := Columns{Payer: "insurer"}.WithDefaults()
	if c.Payer != "insurer" || c.Month != "MONTH" || c.PaidAmount != "PAID_AMOUNT" {
		t.Fatalf("unexpected columns %+v", c)
	}
}
