package backend

import (
	"context"

	"claimlens/internal/sources"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened source and an optional cleanup function.
// Writer is nil for read-only backends (csv, parquet, sheets).
type BackendResult struct {
	Reader  sources.RowReader
	Writer  sources.RowWriter
	Cleanup CleanupFunc
}

// Close runs Cleanup if one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the claim source described by config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Ingestion layout, shared by tabular backends
	Columns sources.Columns

	// File backends
	ClaimsFile   string
	CSVSeparator rune

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL      string
	PostgresTable    string
	PostgresMaxConns int32

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetNames         []string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend      BackendType = "csv"
	ParquetBackend  BackendType = "parquet"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, ParquetBackend, SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Writable reports whether the backend can store an imported claims table.
func (bt BackendType) Writable() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
