package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "claims.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReplaceAndReadRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ReadRows(ctx); !errors.Is(err, core.ErrNoRows) {
		t.Fatalf("expected ErrNoRows on fresh database, got %v", err)
	}

	rows := []dataset.Row{
		{Month: "2020-02-01", Payer: "B", ServiceCategory: "Lab", Specialty: "", PaidAmount: "0.10"},
		{Month: "2020-01-01", Payer: "A", ServiceCategory: "ER", Specialty: "x;y", PaidAmount: "99999999999999999999.99"},
	}
	n, err := repo.ReplaceRows(ctx, rows)
	if err != nil || n != 2 {
		t.Fatalf("ReplaceRows = %d, %v", n, err)
	}

	got, err := repo.ReadRows(ctx)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("rows = %+v, want %+v", got, rows)
	}

	if _, err := repo.ReplaceRows(ctx, rows[1:]); err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}
	if count, err := repo.CountClaims(ctx); err != nil || count != 1 {
		t.Fatalf("CountClaims = %d, %v", count, err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		repo.Close()
	}

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("SchemaVersion = %d (dirty=%v), want 2", version, dirty)
	}
}

func TestImportRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.LastImport(ctx); !errors.Is(err, ErrNoImports) {
		t.Fatalf("expected ErrNoImports, got %v", err)
	}
	if _, err := repo.RecordImport(ctx, "a.csv", 3); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	want, err := repo.RecordImport(ctx, "b.parquet", 7)
	if err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	got, err := repo.LastImport(ctx)
	if err != nil {
		t.Fatalf("LastImport: %v", err)
	}
	if got.ID != want.ID || got.Source != "b.parquet" || got.Rows != 7 || !got.ImportedAt.Equal(want.ImportedAt) {
		t.Fatalf("LastImport = %+v, want %+v", got, want)
	}
}
