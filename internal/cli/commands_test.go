package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lihkab/internal/log"
	"lihkab/internal/storage"
)

func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "lihkab.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", db)
	t.Setenv("DATA_DIR", dir)
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return db
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func usersInDB(t *testing.T, db string) int {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(db, log.Discard())
	require.NoError(t, err)
	defer repo.Close()
	tbl, err := repo.Read(context.Background(), "Users")
	require.NoError(t, err)
	return tbl.Len()
}

func TestUserAddAndSnapshots(t *testing.T) {
	db := sqliteEnv(t)

	out, err := run(t, "user", "add", "Ayse", "-p", "gizli1", "-r", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Added user ayse (admin)")

	_, err = run(t, "user", "add", "ayse", "-p", "gizli1")
	assert.Error(t, err, "duplicate user")

	_, err = run(t, "user", "add", "veli")
	assert.Error(t, err, "password is required")

	out, err = run(t, "snapshot", "take")
	require.NoError(t, err)
	assert.Contains(t, out, "1 new, 0 unchanged")

	out, err = run(t, "snapshot", "list", "-t", "Users")
	require.NoError(t, err)
	assert.Contains(t, out, "REVISION")
	assert.Contains(t, out, "Users")

	repo, err := storage.NewSQLiteRepository(db, log.Discard())
	require.NoError(t, err)
	snaps, err := repo.ListSnapshots(context.Background(), "Users", 1)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.Len(t, snaps, 1)
	id := strconv.FormatInt(snaps[0].ID, 10)

	_, err = run(t, "user", "add", "veli", "-p", "abcd")
	require.NoError(t, err)
	assert.Equal(t, 2, usersInDB(t, db))

	_, err = run(t, "snapshot", "restore", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Equal(t, 2, usersInDB(t, db))

	out, err = run(t, "snapshot", "restore", id, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored Users to snapshot "+id+" (1 rows)")
	assert.Equal(t, 1, usersInDB(t, db))

	_, err = run(t, "snapshot", "restore", "abc", "-y")
	assert.Error(t, err)
}

func TestSnapshotListEmpty(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots.")
}

func TestExportWritesFiles(t *testing.T) {
	sqliteEnv(t)
	dir := t.TempDir()

	xlsx := filepath.Join(dir, "jobs.xlsx")
	out, err := run(t, "export", "xlsx", "-o", xlsx, "--year", "2024", "--month", "Şubat")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 jobs)")
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	pdf := filepath.Join(dir, "pending.pdf")
	out, err = run(t, "export", "pdf", "-o", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "0 pending")
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestInvalidConfigFails(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("SESSION_SECRET", "short")

	_, err := run(t, "snapshot", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestMonthNumber(t *testing.T) {
	cases := map[string]int{
		"":       0,
		"2":      2,
		"12":     12,
		"13":     0,
		"Şubat":  2,
		"Aralık": 12,
		"foo":    0,
	}
	for in, want := range cases {
		assert.Equal(t, want, monthNumber(in), in)
	}
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "a.pdf", orDefault("", "a.pdf"))
	assert.Equal(t, "b.pdf", orDefault("b.pdf", "a.pdf"))
}
