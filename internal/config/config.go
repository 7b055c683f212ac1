package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"claimlens/internal/sources"
)

// Backends accepted by DATA_BACKEND.
var validBackends = []string{"csv", "parquet", "sqlite", "postgres", "sheets", "memory"}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	QueryTimeout       time.Duration

	// Backend selection
	DataBackend string

	// File backends
	ClaimsFile   string
	CSVSeparator string

	// Ingestion
	SpecialtyDelimiters string
	ColumnMonth         string
	ColumnPayer         string
	ColumnCategory      string
	ColumnSpecialty     string
	ColumnPaidAmount    string
	SchemaFile          string

	// Database
	SQLiteDBPath  string
	PostgresURL   string
	PostgresTable string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	// AMQP query worker
	AMQPURL           string
	AMQPExchange      string
	AMQPQueue         string
	WorkerConcurrency int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		QueryTimeout:       getEnvDuration("QUERY_TIMEOUT", 5*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "csv"),

		ClaimsFile:   getEnv("CLAIMS_FILE", "./data/claims.csv"),
		CSVSeparator: getEnv("CLAIMS_CSV_SEPARATOR", ","),

		SpecialtyDelimiters: getEnv("SPECIALTY_DELIMITERS", ";"),
		ColumnMonth:         getEnv("COLUMN_MONTH", "MONTH"),
		ColumnPayer:         getEnv("COLUMN_PAYER", "PAYER"),
		ColumnCategory:      getEnv("COLUMN_SERVICE_CATEGORY", "SERVICE_CATEGORY"),
		ColumnSpecialty:     getEnv("COLUMN_CLAIM_SPECIALTY", "CLAIM_SPECIALTY"),
		ColumnPaidAmount:    getEnv("COLUMN_PAID_AMOUNT", "PAID_AMOUNT"),
		SchemaFile:          getEnv("CLAIMS_SCHEMA_FILE", ""),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/claims.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		PostgresTable: getEnv("POSTGRES_TABLE", "claims"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Claims"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "claimlens"),
		AMQPQueue:         getEnv("AMQP_QUEUE", "claim_queries"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Columns returns the configured input column names.
func (c *Config) Columns() sources.Columns {
	return sources.Columns{
		Month:           c.ColumnMonth,
		Payer:           c.ColumnPayer,
		ServiceCategory: c.ColumnCategory,
		Specialty:       c.ColumnSpecialty,
		PaidAmount:      c.ColumnPaidAmount,
	}.WithDefaults()
}

// Separator returns the CSV separator rune.
func (c *Config) Separator() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVSeparator)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// SheetNames splits GOOGLE_SHEET_NAME on commas.
func (c *Config) SheetNames() []string {
	var out []string
	for _, name := range strings.Split(c.GoogleSheetName, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// AMQPEnabled reports whether the query worker transport is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv", "parquet":
		if c.ClaimsFile == "" {
			errors = append(errors, fmt.Sprintf("claims file cannot be empty when using %s backend", c.DataBackend))
		} else if _, err := os.Stat(c.ClaimsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("claims file does not exist: %s", c.ClaimsFile))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresURL == "" {
			errors = append(errors, "Postgres URL is required when using postgres backend")
		} else if parsedURL, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
		if c.PostgresTable == "" {
			errors = append(errors, "Postgres table cannot be empty when using postgres backend")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if len(c.SheetNames()) == 0 {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleOAuthTokenFile != "" && c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
			errors = append(errors, "Google OAuth client credentials are required with GOOGLE_OAUTH_TOKEN_FILE")
		}
	}

	if utf8.RuneCountInString(c.CSVSeparator) != 1 {
		errors = append(errors, fmt.Sprintf("invalid CSV separator %q: must be a single character", c.CSVSeparator))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 64", c.WorkerConcurrency))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.QueryTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at least 100ms", c.QueryTimeout))
	} else if c.QueryTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at most 5 minutes", c.QueryTimeout))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
