package backend

import (
	"context"
	"errors"
	"fmt"

	"lihkab/internal/core"
	"lihkab/internal/log"
	"lihkab/internal/sheets"
	gsheet "lihkab/internal/sheets/google"
	"lihkab/internal/sheets/memory"
	"lihkab/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the configured gateway and wraps it in a read cache.
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch cfg.Type {
	case SQLiteBackend:
		res, err = f.createSQLite(cfg)
	case SheetsBackend:
		res, err = f.createSheets(ctx, cfg)
	case MemoryBackend:
		res, err = f.createMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, cfg.Type.String(), "read_ttl", res.Gateway.TTL().String())
	return res, nil
}

func (f *DefaultFactory) createSQLite(cfg Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}
	f.logger.Info("Opened SQLite database", "db_path", cfg.SQLiteDBPath)
	return &Result{
		Gateway:    sheets.NewCached(repo, cfg.ReadTTL, f.logger),
		Ready:      repo.Ping,
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheets(ctx context.Context, cfg Config) (*Result, error) {
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	cached := sheets.NewCached(client, cfg.ReadTTL, f.logger)
	return &Result{
		Gateway: cached,
		Ready:   tableReadable(cached, cfg.UsersTable),
	}, nil
}

func (f *DefaultFactory) createMemory(cfg Config) (*Result, error) {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "data"
	}
	store, err := memory.NewFromDir(dir, []string{cfg.UsersTable, cfg.JobsTable}, map[string]sheets.Table{
		cfg.UsersTable: {Header: core.UserColumns},
		cfg.JobsTable:  {Header: core.JobColumns},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize memory backend: %w", err)
	}
	f.logger.Info("Seeded memory backend", "data_directory", dir)
	return &Result{Gateway: sheets.NewCached(store, cfg.ReadTTL, f.logger)}, nil
}

// tableReadable reports a gateway as ready when table can be read. A missing
// table still proves the store answers.
func tableReadable(gw sheets.Gateway, table string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := gw.Read(ctx, table)
		if err == nil || errors.Is(err, sheets.ErrTableNotFound) {
			return nil
		}
		return err
	}
}
