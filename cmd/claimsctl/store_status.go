package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"claimlens/internal/cli"
	"claimlens/internal/storage"
)

var storeStatusCmd = &cobra.Command{
	Use:   "store-status",
	Short: "Show the SQLite store schema version, row count and last import",
	Run:   runStoreStatus,
}

func init() {
	rootCmd.AddCommand(storeStatusCmd)
}

// StoreStatus is printed as JSON.
type StoreStatus struct {
	Path          string     `json:"path"`
	SchemaVersion uint       `json:"schema_version"`
	Dirty         bool       `json:"dirty"`
	Rows          int        `json:"rows"`
	LastImport    *ImportRun `json:"last_import,omitempty"`
}

// ImportRun mirrors storage.ImportRun with JSON names.
type ImportRun struct {
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

func runStoreStatus(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := newContext()
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	status := StoreStatus{Path: cfg.SQLiteDBPath}
	var err error
	status.SchemaVersion, status.Dirty, err = storage.SchemaVersion(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if status.Rows, err = repo.CountClaims(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	run, err := repo.LastImport(ctx)
	switch {
	case errors.Is(err, storage.ErrNoImports):
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	default:
		status.LastImport = &ImportRun{Source: run.Source, Rows: run.Rows, ImportedAt: run.ImportedAt}
	}

	if err := printJSON(status); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}
