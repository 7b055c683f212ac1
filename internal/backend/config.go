package backend

import (
	"fmt"

	"claimlens/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:    backendType,
		Columns: appConfig.Columns(),

		ClaimsFile:   appConfig.ClaimsFile,
		CSVSeparator: appConfig.Separator(),

		SQLiteDBPath: appConfig.SQLiteDBPath,

		PostgresURL:      appConfig.PostgresURL,
		PostgresTable:    appConfig.PostgresTable,
		PostgresMaxConns: 4,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetNames:         appConfig.SheetNames(),
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend, ParquetBackend:
		if c.ClaimsFile == "" {
			return fmt.Errorf("claims file is required for %s backend", c.Type)
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if len(c.GoogleSheetNames) == 0 {
			return fmt.Errorf("Google Sheet name is required for sheets backend")
		}
	case MemoryBackend:
		// Serves the built-in sample table
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{CSVBackend, ParquetBackend, SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
