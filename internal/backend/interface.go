// Package backend builds the table gateway selected by configuration.
package backend

import (
	"context"
	"time"

	"lihkab/internal/sheets"
	"lihkab/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready-to-use gateway plus what is needed to probe and close it.
type Result struct {
	// Gateway is the cached gateway handed to the services.
	Gateway *sheets.Cached
	// Ready probes the underlying store for /readyz.
	Ready func(ctx context.Context) error
	// Repository is set for the sqlite backend only.
	Repository *storage.SQLiteRepository
	Cleanup    CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds what the factory needs from the application config.
type Config struct {
	Type Type

	// memory
	DataDirectory string

	// sqlite
	SQLiteDBPath string

	// sheets
	GoogleSpreadsheetID   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	UsersTable string
	JobsTable  string
	ReadTTL    time.Duration
}

// Type names a data backend.
type Type string

const (
	MemoryBackend Type = "memory"
	SheetsBackend Type = "sheets"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
