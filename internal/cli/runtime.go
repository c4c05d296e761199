package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"lihkab/internal/amqp"
	"lihkab/internal/backend"
	"lihkab/internal/config"
	"lihkab/internal/log"
	"lihkab/internal/services"
	"lihkab/internal/storage"
	"lihkab/internal/worker"
)

// runtime is what a lihkabctl command works with: the configured backend,
// the services on top of it and, when needed, the snapshot store.
type runtime struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.Result
	jobs    *services.JobService
	users   *services.UserService

	repo    *storage.SQLiteRepository
	ownRepo bool
	amqp    *amqp.Client
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		backend: res,
		jobs:    services.NewJobService(res.Gateway, cfg.JobsTable, cfg.ConflictPolicy, logger),
		users:   services.NewUserService(res.Gateway, cfg.UsersTable, logger),
		repo:    res.Repository,
	}

	// Writes made from the command line are announced like the server's.
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, writes will not be announced", log.FieldError, err)
		} else {
			rt.amqp = client
			res.Gateway.SetNotifier(client)
		}
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend: changes made here are lost when the command exits")
	}
	return rt, nil
}

// snapshots opens the snapshot store, sharing the backend database when the
// backend is SQLite.
func (rt *runtime) snapshots() (*worker.SnapshotWorker, error) {
	if rt.repo == nil {
		repo, err := storage.NewSQLiteRepository(rt.cfg.SQLiteDBPath, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		rt.repo = repo
		rt.ownRepo = true
	}
	return worker.NewSnapshotWorker(rt.backend.Gateway, rt.repo,
		[]string{rt.cfg.UsersTable, rt.cfg.JobsTable}, rt.cfg.SnapshotKeep, rt.logger), nil
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.amqp != nil {
		errs = append(errs, rt.amqp.Close())
	}
	if rt.ownRepo {
		errs = append(errs, rt.repo.Close())
	}
	errs = append(errs, rt.backend.Close())
	return errors.Join(errs...)
}
