// Package storage keeps tables in SQLite. It serves as a sheets.Gateway for
// offline use and as the snapshot store for written tables.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lihkab/internal/log"
	"lihkab/internal/sheets"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ sheets.Gateway = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Read implements sheets.Gateway.
func (r *SQLiteRepository) Read(ctx context.Context, table string) (sheets.Table, error) {
	var headerJSON string
	err := r.db.QueryRowContext(ctx, `SELECT header FROM tables WHERE name = ?`, table).Scan(&headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.Table{}, fmt.Errorf("%w: %s", sheets.ErrTableNotFound, table)
	}
	if err != nil {
		return sheets.Table{}, fmt.Errorf("read header of %s: %w", table, err)
	}

	t := sheets.Table{}
	if err := json.Unmarshal([]byte(headerJSON), &t.Header); err != nil {
		return sheets.Table{}, fmt.Errorf("decode header of %s: %w", table, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM table_rows WHERE table_name = ? ORDER BY position`, table)
	if err != nil {
		return sheets.Table{}, fmt.Errorf("read rows of %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return sheets.Table{}, fmt.Errorf("scan row of %s: %w", table, err)
		}
		row := sheets.Row{}
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return sheets.Table{}, fmt.Errorf("decode row of %s: %w", table, err)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return sheets.Table{}, fmt.Errorf("iterate rows of %s: %w", table, err)
	}
	return t, nil
}

// Write implements sheets.Gateway. The replacement is a single transaction.
func (r *SQLiteRepository) Write(ctx context.Context, table string, t sheets.Table) error {
	headerJSON, err := json.Marshal(t.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tables (name, header, revision, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET header = excluded.header,
			revision = excluded.revision, updated_at = excluded.updated_at`,
		table, string(headerJSON), sheets.Fingerprint(t), time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("upsert table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM table_rows WHERE table_name = ?`, table); err != nil {
		return fmt.Errorf("clear rows of %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO table_rows (table_name, position, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, table, i, string(data)); err != nil {
			return fmt.Errorf("insert row %d of %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	r.logger.InfoContext(ctx, "Table written to SQLite",
		log.FieldTable, table, log.FieldRows, t.Len())
	return nil
}

// Revision returns the fingerprint recorded with the last write of table.
func (r *SQLiteRepository) Revision(ctx context.Context, table string) (string, error) {
	var rev string
	err := r.db.QueryRowContext(ctx, `SELECT revision FROM tables WHERE name = ?`, table).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", sheets.ErrTableNotFound, table)
	}
	return rev, err
}
