// Package sheets defines the persistence boundary: a spreadsheet-shaped
// store that can read and fully overwrite named tables.
package sheets

import (
	"context"
	"errors"
)

// ErrTableNotFound is returned by gateways when the named table does not exist.
var ErrTableNotFound = errors.New("table not found")

// Ports for outbound adapters.
type (
	// Gateway reads and overwrites whole tables. Write is a full replacement
	// and callers must not assume it is atomic.
	Gateway interface {
		Read(ctx context.Context, table string) (Table, error)
		Write(ctx context.Context, table string, t Table) error
	}

	// Notifier is told about every successful write so other instances can
	// drop their cached copy.
	Notifier interface {
		TableWritten(ctx context.Context, table, revision string, rows int) error
	}
)
