package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lihkab/internal/config"
	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/sheets"
)

func baseConfig(t Type) Config {
	return Config{Type: t, UsersTable: "Users", JobsTable: "Sayfa1", ReadTTL: time.Second}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(c *Config) {}, ""},
		{"bad type", func(c *Config) { c.Type = "postgres" }, "invalid backend type"},
		{"no tables", func(c *Config) { c.JobsTable = "" }, "table names"},
		{"sqlite without path", func(c *Config) { c.Type = SQLiteBackend }, "SQLite database path"},
		{"sheets without id", func(c *Config) { c.Type = SheetsBackend }, "Spreadsheet ID"},
		{"sheets without credentials", func(c *Config) {
			c.Type = SheetsBackend
			c.GoogleSpreadsheetID = "abc"
		}, "credentials"},
		{"sheets ok", func(c *Config) {
			c.Type = SheetsBackend
			c.GoogleSpreadsheetID = "abc"
			c.GoogleCredentialsFile = "/secrets/sa.json"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(MemoryBackend)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	app := &config.Config{
		DataBackend:              config.BackendSQLite,
		SQLiteDBPath:             "/tmp/x.db",
		GoogleServiceAccountFile: "sa.json",
		UsersTable:               "Users",
		JobsTable:                "Sayfa1",
		ReadTTL:                  3 * time.Second,
	}
	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "sa.json", cfg.GoogleCredentialsFile)
	assert.Equal(t, 3*time.Second, cfg.ReadTTL)

	app.DataBackend = "excel"
	_, err = FromAppConfig(app)
	assert.Error(t, err)
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"memory", "sheets", "sqlite"}, TypeStrings())
}

func TestCreateMemorySeedsFromCSV(t *testing.T) {
	dir := t.TempDir()
	csv := "username,password,role\nadmin,1234,admin\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Users.csv"), []byte(csv), 0o600))

	cfg := baseConfig(MemoryBackend)
	cfg.DataDirectory = dir
	res, err := NewFactory(log.Discard()).Create(context.Background(), cfg)
	require.NoError(t, err)
	defer res.Close()

	users, err := res.Gateway.Read(context.Background(), "Users")
	require.NoError(t, err)
	assert.Equal(t, "admin", users.Get(0, core.ColUsername))

	jobs, err := res.Gateway.Read(context.Background(), "Sayfa1")
	require.NoError(t, err, "missing CSV falls back to an empty table")
	assert.Equal(t, core.JobColumns, jobs.Header)
	assert.Nil(t, res.Ready)
	assert.Nil(t, res.Repository)
}

func TestCreateSQLite(t *testing.T) {
	cfg := baseConfig(SQLiteBackend)
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "lihkab.db")

	res, err := NewFactory(log.Discard()).Create(context.Background(), cfg)
	require.NoError(t, err)
	defer res.Close()

	require.NotNil(t, res.Repository)
	require.NotNil(t, res.Ready)
	assert.NoError(t, res.Ready(context.Background()))

	table := sheets.Table{Header: core.UserColumns, Rows: []sheets.Row{{core.ColUsername: "veli", core.ColRole: "user"}}}
	require.NoError(t, res.Gateway.Write(context.Background(), "Users", table))
	got, err := res.Repository.Read(context.Background(), "Users")
	require.NoError(t, err)
	assert.Equal(t, "veli", got.Get(0, core.ColUsername))
}

type notFoundGateway struct{}

func (notFoundGateway) Read(context.Context, string) (sheets.Table, error) {
	return sheets.Table{}, sheets.ErrTableNotFound
}

func (notFoundGateway) Write(context.Context, string, sheets.Table) error { return nil }

func TestTableReadableTreatsMissingTableAsReady(t *testing.T) {
	assert.NoError(t, tableReadable(notFoundGateway{}, "Users")(context.Background()))
}

func TestResultCloseWithoutCleanup(t *testing.T) {
	var r *Result
	assert.NoError(t, r.Close())
	assert.NoError(t, (&Result{}).Close())
}
