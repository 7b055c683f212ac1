package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"

	_ "modernc.org/sqlite"
)

// ErrNoImports is returned by LastImport before the first import.
var ErrNoImports = errors.New("no import recorded")

// SQLiteRepository stores the canonical claims table in a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ sources.RowReader = (*SQLiteRepository)(nil)
	_ sources.RowWriter = (*SQLiteRepository)(nil)
)

// ImportRun is one recorded import.
type ImportRun struct {
	ID         int64
	Source     string
	Rows       int
	ImportedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadRows implements sources.RowReader. Rows come back in insert order.
func (r *SQLiteRepository) ReadRows(ctx context.Context) ([]dataset.Row, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, payer, service_category, claim_specialty, paid_amount FROM claims ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select claims: %w", err)
	}
	defer rows.Close()

	var out []dataset.Row
	for rows.Next() {
		var row dataset.Row
		if err := rows.Scan(&row.Month, &row.Payer, &row.ServiceCategory, &row.Specialty, &row.PaidAmount); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	if len(out) == 0 {
		return nil, &core.IngestError{Err: core.ErrNoRows}
	}
	return out, nil
}

// ReplaceRows implements sources.RowWriter. The table is cleared and
// refilled in one transaction; readers never see a partial table.
func (r *SQLiteRepository) ReplaceRows(ctx context.Context, rows []dataset.Row) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM claims`); err != nil {
		return 0, fmt.Errorf("clear claims: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO claims (month, payer, service_category, claim_specialty, paid_amount) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Month, row.Payer, row.ServiceCategory, row.Specialty, row.PaidAmount); err != nil {
			return 0, fmt.Errorf("insert claim %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Claims table replaced in SQLite", "rows", len(rows))
	return len(rows), nil
}

// RecordImport appends an import audit entry.
func (r *SQLiteRepository) RecordImport(ctx context.Context, source string, rowCount int) (ImportRun, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO import_runs (source, row_count, imported_at) VALUES (?, ?, ?)`,
		source, rowCount, now.Format(time.RFC3339))
	if err != nil {
		return ImportRun{}, fmt.Errorf("record import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ImportRun{}, fmt.Errorf("import id: %w", err)
	}
	return ImportRun{ID: id, Source: source, Rows: rowCount, ImportedAt: now.Truncate(time.Second)}, nil
}

// LastImport returns the most recent import run.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportRun, error) {
	var (
		run ImportRun
		ts  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, row_count, imported_at FROM import_runs ORDER BY id DESC LIMIT 1`).
		Scan(&run.ID, &run.Source, &run.Rows, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRun{}, ErrNoImports
	}
	if err != nil {
		return ImportRun{}, fmt.Errorf("last import: %w", err)
	}
	run.ImportedAt, err = time.Parse(time.RFC3339, ts)
	if err != nil {
		return ImportRun{}, fmt.Errorf("parse import time %q: %w", ts, err)
	}
	return run, nil
}

// CountClaims returns the number of stored rows.
func (r *SQLiteRepository) CountClaims(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return n, nil
}
