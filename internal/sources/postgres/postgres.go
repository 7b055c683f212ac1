// Package postgres reads the claims table from PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

// Store reads and replaces claim rows in one table.
type Store struct {
	pool    *pgxpool.Pool
	table   string
	columns sources.Columns
}

var (
	_ sources.RowReader = (*Store)(nil)
	_ sources.RowWriter = (*Store)(nil)
)

// Connect opens a pool for connStr and verifies it with a ping.
func Connect(ctx context.Context, connStr string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// New wraps an open pool. Column names are quoted as identifiers, so they
// must match the table exactly.
func New(pool *pgxpool.Pool, table string, cols sources.Columns) *Store {
	if table == "" {
		table = "claims"
	}
	return &Store{pool: pool, table: table, columns: cols.WithDefaults()}
}

func (s *Store) ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *Store) tableIdent() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// EnsureTable creates the claims table when it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	c := s.columns
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	%s DATE NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL,
	%s TEXT,
	%s NUMERIC NOT NULL CHECK (%s >= 0)
)`, s.tableIdent(), s.ident(c.Month), s.ident(c.Payer), s.ident(c.ServiceCategory),
		s.ident(c.Specialty), s.ident(c.PaidAmount), s.ident(c.PaidAmount))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// ReadRows selects every row. Values are cast to text in SQL so that date,
// timestamp and numeric columns reach dataset.Load in their canonical text
// form. Rows come back in primary key order when the table has an id
// column.
func (s *Store) ReadRows(ctx context.Context) ([]dataset.Row, error) {
	c := s.columns
	query := fmt.Sprintf(`SELECT %s::text, %s::text, %s::text, COALESCE(%s::text, ''), %s::text FROM %s`,
		s.ident(c.Month), s.ident(c.Payer), s.ident(c.ServiceCategory),
		s.ident(c.Specialty), s.ident(c.PaidAmount), s.tableIdent())
	if ok, err := s.hasIDColumn(ctx); err != nil {
		return nil, err
	} else if ok {
		query += " ORDER BY id"
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select claims: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dataset.Row, error) {
		var r dataset.Row
		err := row.Scan(&r.Month, &r.Payer, &r.ServiceCategory, &r.Specialty, &r.PaidAmount)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan claims: %w", err)
	}
	if len(out) == 0 {
		return nil, &core.IngestError{Err: core.ErrNoRows}
	}
	return out, nil
}

func (s *Store) hasIDColumn(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = $1 AND column_name = 'id')`,
		s.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", s.table, err)
	}
	return exists, nil
}

// ReplaceRows deletes the table contents and inserts rows in one
// transaction. Rows should be canonical (see dataset.CanonicalRow).
func (s *Store) ReplaceRows(ctx context.Context, rows []dataset.Row) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.tableIdent())); err != nil {
		return 0, fmt.Errorf("clear %s: %w", s.table, err)
	}

	c := s.columns
	insert := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1::date, $2, $3, NULLIF($4, ''), $5::numeric)`,
		s.tableIdent(), s.ident(c.Month), s.ident(c.Payer), s.ident(c.ServiceCategory),
		s.ident(c.Specialty), s.ident(c.PaidAmount))

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insert, r.Month, r.Payer, r.ServiceCategory, r.Specialty, r.PaidAmount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert claims: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}
