package backend

import (
	"errors"
	"fmt"

	"lihkab/internal/config"
)

// FromAppConfig converts the application config to a backend config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", cfg.DataBackend)
	}
	return Config{
		Type:                  t,
		DataDirectory:         cfg.DataDir,
		SQLiteDBPath:          cfg.SQLiteDBPath,
		GoogleSpreadsheetID:   cfg.GoogleSpreadsheetID,
		GoogleCredentialsJSON: cfg.GoogleServiceAccountJSON,
		GoogleCredentialsFile: cfg.GoogleServiceAccountFile,
		UsersTable:            cfg.UsersTable,
		JobsTable:             cfg.JobsTable,
		ReadTTL:               cfg.ReadTTL,
	}, nil
}

// Validate checks the settings the selected backend needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.UsersTable == "" || c.JobsTable == "" {
		return errors.New("users and jobs table names are required")
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			return errors.New("service account credentials (JSON or file) are required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data".
	}
	return nil
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{MemoryBackend, SheetsBackend, SQLiteBackend}
}

// TypeStrings returns all valid backend type names.
func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
