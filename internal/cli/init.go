// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/claimlens, cmd/claimlens-worker and cmd/claimsctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"claimlens/internal/analytics"
	"claimlens/internal/backend"
	"claimlens/internal/config"
	"claimlens/internal/dataset"
	"claimlens/internal/log"
	"claimlens/internal/services"
	"claimlens/internal/storage"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level, format string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Format:    format,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadEnvFrom loads an explicit env file. Unlike LoadEnvFile a missing file
// is an error.
func LoadEnvFrom(path string) error {
	return godotenv.Load(path)
}

// LoadAndValidateConfig loads configuration, applies the schema file if one
// is configured, and validates the result.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.LoadWithSchema()
	if err != nil {
		logger.Error("Failed to load claims schema", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// OpenBackend opens the claim source named by cfg.DataBackend.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	return factory.CreateBackend(ctx, bcfg)
}

// DatasetOptions returns the ingestion options from cfg.
func DatasetOptions(cfg *config.Config) dataset.Options {
	return dataset.Options{SpecialtyDelimiters: cfg.SpecialtyDelimiters}
}

// LoadEngine opens the configured backend, loads the dataset and builds
// the query engine. The backend is closed before returning: the engine
// keeps everything it needs in memory.
func LoadEngine(ctx context.Context, logger *log.Logger, cfg *config.Config) (*analytics.Engine, error) {
	res, err := OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	}()

	return services.LoadEngine(ctx, logger.WithComponent(log.ComponentLoader), res.Reader, DatasetOptions(cfg))
}

// MustLoadEngine is LoadEngine for binaries: a load failure is fatal.
func MustLoadEngine(ctx context.Context, logger *log.Logger, cfg *config.Config) *analytics.Engine {
	engine, err := LoadEngine(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to load claims dataset",
			log.FieldError, err,
			log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return engine
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cleanupDone := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(cleanupDone)
		}()

		cancel()

		select {
		case <-cleanupDone:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
