// Package worker keeps point-in-time copies of the tables in SQLite. Every
// table.written message triggers a snapshot, so a bad bulk edit of the
// spreadsheet can be rolled back.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lihkab/internal/amqp"
	"lihkab/internal/log"
	"lihkab/internal/sheets"
	"lihkab/internal/storage"
)

// SnapshotStore is the part of storage.SQLiteRepository the worker needs.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, table string, t sheets.Table) (storage.Snapshot, bool, error)
	LoadSnapshot(ctx context.Context, id int64) (storage.Snapshot, sheets.Table, error)
	PruneSnapshots(ctx context.Context, table string, keep int) (int64, error)
}

// Stats counts what the worker has done since start.
type Stats struct {
	Saved     int64
	Unchanged int64
	Ignored   int64
	Failed    int64
}

// SnapshotWorker copies watched tables from source into store.
type SnapshotWorker struct {
	source sheets.Gateway
	store  SnapshotStore
	tables []string
	keep   int
	logger *log.Logger

	saved, unchanged, ignored, failed atomic.Int64
}

// NewSnapshotWorker watches tables, keeping the newest keep snapshots of each.
func NewSnapshotWorker(source sheets.Gateway, store SnapshotStore, tables []string, keep int, logger *log.Logger) *SnapshotWorker {
	if keep < 1 {
		keep = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SnapshotWorker{
		source: source,
		store:  store,
		tables: append([]string(nil), tables...),
		keep:   keep,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

func (w *SnapshotWorker) watches(table string) bool {
	for _, t := range w.tables {
		if t == table {
			return true
		}
	}
	return false
}

// HandleTableWritten snapshots the table named by msg. It reads the table
// itself; a revision that moved on since the message was sent is
// snapshotted as found.
func (w *SnapshotWorker) HandleTableWritten(ctx context.Context, msg *amqp.TableWrittenMessage) error {
	if !w.watches(msg.Table) {
		w.ignored.Add(1)
		w.logger.DebugContext(ctx, "Ignoring unwatched table", log.FieldTable, msg.Table)
		return nil
	}
	_, err := w.snapshot(ctx, msg.Table, msg.Revision)
	return err
}

func (w *SnapshotWorker) snapshot(ctx context.Context, table, announced string) (storage.Snapshot, error) {
	t, err := w.source.Read(ctx, table)
	if errors.Is(err, sheets.ErrTableNotFound) {
		w.ignored.Add(1)
		w.logger.WarnContext(ctx, "Table to snapshot not found", log.FieldTable, table)
		return storage.Snapshot{}, nil
	}
	if err != nil {
		w.failed.Add(1)
		return storage.Snapshot{}, fmt.Errorf("read %s: %w", table, err)
	}

	if rev := sheets.Fingerprint(t); announced != "" && rev != announced {
		w.logger.DebugContext(ctx, "Table changed again since announcement",
			log.FieldTable, table, log.FieldRevision, announced, "current_revision", rev)
	}

	snap, created, err := w.store.SaveSnapshot(ctx, table, t)
	if err != nil {
		w.failed.Add(1)
		return storage.Snapshot{}, fmt.Errorf("save snapshot of %s: %w", table, err)
	}
	if !created {
		w.unchanged.Add(1)
		return snap, nil
	}
	w.saved.Add(1)

	pruned, err := w.store.PruneSnapshots(ctx, table, w.keep)
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to prune snapshots", log.FieldTable, table, log.FieldError, err)
	} else if pruned > 0 {
		w.logger.InfoContext(ctx, "Pruned old snapshots", log.FieldTable, table, log.FieldCount, pruned)
	}
	return snap, nil
}

// SnapshotAll snapshots every watched table. It runs at start-up and on a
// timer to recover from lost messages. Failures are logged and counted;
// the first one is returned.
func (w *SnapshotWorker) SnapshotAll(ctx context.Context) error {
	start := time.Now()
	var first error
	saved := 0
	for _, table := range w.tables {
		snap, err := w.snapshot(ctx, table, "")
		if err != nil {
			w.logger.ErrorContext(ctx, "Snapshot failed", log.FieldTable, table, log.FieldError, err)
			if first == nil {
				first = err
			}
			continue
		}
		if snap.ID != 0 {
			saved++
		}
	}
	w.logger.InfoContext(ctx, "Snapshot sweep completed",
		"tables", len(w.tables),
		log.FieldCount, saved,
		log.FieldDuration, time.Since(start).Milliseconds())
	return first
}

// RunPeriodic calls SnapshotAll every interval until ctx is done.
func (w *SnapshotWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.SnapshotAll(ctx)
		}
	}
}

// Restore overwrites target's copy of the snapshot's table with the
// snapshot contents. target is usually the cached gateway so the write is
// announced like any other.
func (w *SnapshotWorker) Restore(ctx context.Context, target sheets.Gateway, id int64) (storage.Snapshot, error) {
	snap, t, err := w.store.LoadSnapshot(ctx, id)
	if err != nil {
		return storage.Snapshot{}, err
	}
	if err := target.Write(ctx, snap.Table, t); err != nil {
		return storage.Snapshot{}, fmt.Errorf("restore %s: %w", snap.Table, err)
	}
	w.logger.InfoContext(ctx, "Snapshot restored",
		"id", snap.ID, log.FieldTable, snap.Table, log.FieldRevision, snap.Revision,
		log.FieldRows, snap.Rows, log.FieldOperation, log.OpRestore)
	return snap, nil
}

func (w *SnapshotWorker) Stats() Stats {
	return Stats{
		Saved:     w.saved.Load(),
		Unchanged: w.unchanged.Load(),
		Ignored:   w.ignored.Load(),
		Failed:    w.failed.Load(),
	}
}

// Invalidator is the interface of sheets.Cached used by CacheInvalidator.
type Invalidator interface {
	Invalidate(table string)
}

// CacheInvalidator returns a handler that drops the cached copy of every
// table another process wrote.
func CacheInvalidator(c Invalidator, logger *log.Logger) amqp.Handler {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentCache)
	return func(ctx context.Context, msg *amqp.TableWrittenMessage) error {
		c.Invalidate(msg.Table)
		logger.DebugContext(ctx, "Cache invalidated by remote write",
			log.FieldTable, msg.Table, log.FieldRevision, msg.Revision)
		return nil
	}
}
