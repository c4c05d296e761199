package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lihkab/internal/log"
	"lihkab/internal/sheets"
)

// ErrSnapshotNotFound is returned when a snapshot ID does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot describes one stored copy of a table.
type Snapshot struct {
	ID        int64
	Table     string
	Revision  string
	Rows      int
	CreatedAt time.Time
}

// SaveSnapshot stores a copy of t. Saving the same revision twice is a no-op
// that returns the existing snapshot with created false.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, table string, t sheets.Table) (snap Snapshot, created bool, err error) {
	rev := sheets.Fingerprint(t)
	existing, err := r.snapshotByRevision(ctx, table, rev)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		return Snapshot{}, false, err
	}

	headerJSON, err := json.Marshal(t.Header)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("encode header: %w", err)
	}
	rowsJSON, err := json.Marshal(t.Rows)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("encode rows: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (table_name, revision, row_count, header, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		table, rev, t.Len(), string(headerJSON), string(rowsJSON), now.UnixNano())
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot id: %w", err)
	}

	r.logger.InfoContext(ctx, "Snapshot saved",
		log.FieldTable, table, log.FieldRevision, rev, log.FieldRows, t.Len(), "id", id)
	return Snapshot{ID: id, Table: table, Revision: rev, Rows: t.Len(), CreatedAt: time.Unix(0, now.UnixNano()).UTC()}, true, nil
}

// ListSnapshots returns the newest snapshots of table first. An empty table
// name lists every table. limit <= 0 means no limit.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, table string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, table_name, revision, row_count, created_at FROM snapshots
		WHERE ? = '' OR table_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, table, table, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadSnapshot returns the metadata and contents of snapshot id.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, id int64) (Snapshot, sheets.Table, error) {
	var (
		created            int64
		headerJSON, rowsJS string
		s                  Snapshot
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, table_name, revision, row_count, created_at, header, data
		FROM snapshots WHERE id = ?`, id).
		Scan(&s.ID, &s.Table, &s.Revision, &s.Rows, &created, &headerJSON, &rowsJS)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, sheets.Table{}, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return Snapshot{}, sheets.Table{}, fmt.Errorf("load snapshot %d: %w", id, err)
	}
	s.CreatedAt = time.Unix(0, created).UTC()

	var t sheets.Table
	if err := json.Unmarshal([]byte(headerJSON), &t.Header); err != nil {
		return Snapshot{}, sheets.Table{}, fmt.Errorf("decode snapshot header: %w", err)
	}
	if err := json.Unmarshal([]byte(rowsJS), &t.Rows); err != nil {
		return Snapshot{}, sheets.Table{}, fmt.Errorf("decode snapshot rows: %w", err)
	}
	return s, t, nil
}

// PruneSnapshots keeps the newest keep snapshots of table and deletes the
// rest, returning how many were removed.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, table string, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE table_name = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE table_name = ?
			ORDER BY created_at DESC, id DESC LIMIT ?)`, table, table, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) snapshotByRevision(ctx context.Context, table, rev string) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, table_name, revision, row_count, created_at FROM snapshots
		WHERE table_name = ? AND revision = ?`, table, rev)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (Snapshot, error) {
	var (
		s       Snapshot
		created int64
	)
	if err := sc.Scan(&s.ID, &s.Table, &s.Revision, &s.Rows, &created); err != nil {
		return Snapshot{}, err
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	return s, nil
}
