package backend

import (
	"context"
	"fmt"
	"log/slog"

	"claimlens/internal/sources/csvfile"
	"claimlens/internal/sources/google"
	"claimlens/internal/sources/memory"
	"claimlens/internal/sources/parquetfile"
	"claimlens/internal/sources/postgres"
	"claimlens/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case ParquetBackend:
		return f.createParquetBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (*BackendResult, error) {
	reader := csvfile.New(config.ClaimsFile,
		csvfile.WithSeparator(config.CSVSeparator),
		csvfile.WithColumns(config.Columns))

	f.logger.Info("Initialized CSV backend",
		"file", config.ClaimsFile,
		"separator", string(config.CSVSeparator))

	return &BackendResult{Reader: reader}, nil
}

func (f *DefaultFactory) createParquetBackend(config Config) (*BackendResult, error) {
	f.logger.Info("Initialized Parquet backend", "file", config.ClaimsFile)
	return &BackendResult{Reader: parquetfile.NewReader(config.ClaimsFile)}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Reader:  sqliteRepo,
		Writer:  sqliteRepo,
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	pool, err := postgres.Connect(ctx, config.PostgresURL, config.PostgresMaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	store := postgres.New(pool, config.PostgresTable, config.Columns)
	if err := store.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	f.logger.Info("Initialized Postgres backend", "table", config.PostgresTable)

	return &BackendResult{
		Reader: store,
		Writer: store,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.NewFromConfig(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetNames:      config.GoogleSheetNames,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		OAuthTokenFile:  config.GoogleOAuthTokenFile,
		OAuthClientJSON: config.GoogleOAuthClientJSON,
		OAuthClientFile: config.GoogleOAuthClientFile,
		Columns:         config.Columns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheets", config.GoogleSheetNames)

	return &BackendResult{Reader: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.NewSample()

	f.logger.Info("Initialized memory backend with sample claims")

	return &BackendResult{
		Reader: store,
		Writer: store,
	}, nil
}
