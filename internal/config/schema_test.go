package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSchema(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return path
}

func TestLoadSchemaAndApply(t *testing.T) {
	path := writeSchema(t, `
columns:
  month: service_month
  payer: insurer
specialty_delimiters: ";|"
separator: ";"
`)
	s, err := LoadSchema(path)
	if err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}

	cfg := validConfig()
	cfg.ColumnCategory = "SERVICE_CATEGORY"
	cfg.ApplySchema(s)

	cols := cfg.Columns()
	if cols.Month != "service_month" || cols.Payer != "insurer" {
		t.Errorf("columns not applied: %+v", cols)
	}
	if cols.ServiceCategory != "SERVICE_CATEGORY" {
		t.Errorf("blank schema field overrode category: %q", cols.ServiceCategory)
	}
	if cols.PaidAmount != "PAID_AMOUNT" {
		t.Errorf("default paid amount column lost: %q", cols.PaidAmount)
	}
	if cfg.SpecialtyDelimiters != ";|" {
		t.Errorf("SpecialtyDelimiters = %q", cfg.SpecialtyDelimiters)
	}
	if cfg.Separator() != ';' {
		t.Errorf("Separator() = %q", cfg.Separator())
	}
}

func TestLoadSchemaRejectsUnknownKeys(t *testing.T) {
	path := writeSchema(t, "colums:\n  month: m\n")
	if _, err := LoadSchema(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadWithSchema(t *testing.T) {
	path := writeSchema(t, "columns:\n  paid_amount: amount_paid\n")
	t.Setenv("CLAIMS_SCHEMA_FILE", path)
	t.Setenv("COLUMN_PAID_AMOUNT", "")

	cfg, err := LoadWithSchema()
	if err != nil {
		t.Fatalf("LoadWithSchema() error = %v", err)
	}
	if cfg.ColumnPaidAmount != "amount_paid" {
		t.Errorf("ColumnPaidAmount = %q, want amount_paid", cfg.ColumnPaidAmount)
	}

	t.Setenv("CLAIMS_SCHEMA_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadWithSchema(); err == nil {
		t.Error("expected error for missing schema file")
	}
}
