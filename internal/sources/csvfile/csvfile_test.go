package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

func TestDecode(t *testing.T) {
	input := "\xEF\xBB\xBFMONTH,PAYER,SERVICE_CATEGORY,CLAIM_SPECIALTY,PAID_AMOUNT\n" +
		"2020-01-01,A,ER,x,100\n" +
		"\n" +
		",,,,\n" +
		"2020-01-01,B,ER,\"y;z\",50.5\n" +
		"2020-02-01,A,Lab,,200\n"

	rows, err := Decode(context.Background(), strings.NewReader(input), ',', sources.DefaultColumns())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := dataset.Row{Month: "2020-01-01", Payer: "B", ServiceCategory: "ER", Specialty: "y;z", PaidAmount: "50.5"}
	if rows[1] != want {
		t.Fatalf("row 1 = %+v, want %+v", rows[1], want)
	}
	if rows[2].Specialty != "" {
		t.Fatalf("expected blank specialty, got %q", rows[2].Specialty)
	}
}

func TestDecodeCustomColumnsAndSeparator(t *testing.T) {
	input := "paid;when;who;kind\n12,5;2021-07;Acme;Pharmacy\n"
	cols := sources.Columns{Month: "when", Payer: "who", ServiceCategory: "kind", PaidAmount: "paid"}

	rows, err := Decode(context.Background(), strings.NewReader(input), ';', cols)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := dataset.Row{Month: "2021-07", Payer: "Acme", ServiceCategory: "Pharmacy", PaidAmount: "12,5"}
	if len(rows) != 1 || rows[0] != want {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestDecodeMissingColumn(t *testing.T) {
	input := "MONTH,PAYER,CLAIM_SPECIALTY,PAID_AMOUNT\n2020-01,A,x,1\n"
	_, err := Decode(context.Background(), strings.NewReader(input), ',', sources.DefaultColumns())
	var ie *core.IngestError
	if !errors.As(err, &ie) || !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected missing column ingest error, got %v", err)
	}
	if ie.Field != dataset.FieldServiceCategory {
		t.Fatalf("field = %q", ie.Field)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	_, err := Decode(context.Background(), strings.NewReader(""), ',', sources.DefaultColumns())
	if !errors.Is(err, core.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestReaderLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.csv")
	content := "month|payer|service_category|claim_specialty|paid_amount\n2020-03|A|ER|x y|7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := New(path, WithSeparator('|')).ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	ds, err := dataset.Load(rows, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := ds.Records()[0].Specialties; len(got) != 2 {
		t.Fatalf("specialties = %v", got)
	}

	if _, err := New(filepath.Join(t.TempDir(), "nope.csv")).ReadRows(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
