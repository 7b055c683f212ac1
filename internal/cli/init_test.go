package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"claimlens/internal/config"
	"claimlens/internal/log"
)

func discardLogger() *log.Logger {
	return log.New(log.Config{Format: "text", Component: log.ComponentApp, Output: io.Discard})
}

func TestLoadEngineFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.csv")
	body := "month,payer,service_category,claim_specialty,paid_amount\n" +
		"2021-01,A,Inpatient,ortho|cardio,100\n" +
		"2021-02,B,Lab,,50\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		DataBackend:         "csv",
		ClaimsFile:          path,
		CSVSeparator:        ",",
		SpecialtyDelimiters: "|",
	}
	engine, err := LoadEngine(context.Background(), discardLogger(), cfg)
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if got := engine.Payers(); len(got) != 2 || got[0] != "A" {
		t.Errorf("Payers() = %v", got)
	}
	recs := engine.Dataset().Records()
	if len(recs[0].Specialties) != 2 || recs[0].Specialties[1] != "cardio" {
		t.Errorf("specialties = %v, want [ortho cardio]", recs[0].Specialties)
	}
}

func TestLoadEngineUnknownBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: "excel"}
	if _, err := LoadEngine(context.Background(), discardLogger(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestDatasetOptions(t *testing.T) {
	opts := DatasetOptions(&config.Config{SpecialtyDelimiters: ";,"})
	if opts.SpecialtyDelimiters != ";," {
		t.Errorf("SpecialtyDelimiters = %q", opts.SpecialtyDelimiters)
	}
}

func TestLoadEnvFrom(t *testing.T) {
	if err := LoadEnvFrom(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("LoadEnvFrom() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("CLAIMLENS_TEST_ENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLAIMLENS_TEST_ENV", "")
	os.Unsetenv("CLAIMLENS_TEST_ENV")
	if err := LoadEnvFrom(path); err != nil {
		t.Fatalf("LoadEnvFrom() error = %v", err)
	}
	if got := os.Getenv("CLAIMLENS_TEST_ENV"); got != "from-file" {
		t.Errorf("CLAIMLENS_TEST_ENV = %q, want from-file", got)
	}
}
