package main

import (
	"context"
	"errors"
	"os"
	"time"

	"lihkab/internal/amqp"
	"lihkab/internal/backend"
	"lihkab/internal/cli"
	"lihkab/internal/config"
	"lihkab/internal/log"
	"lihkab/internal/storage"
	"lihkab/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger.Info("Starting lihkab-worker", log.FieldOperation, log.OpStartup)

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to each process; the worker only sees its own seed data")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.GatewayTimeout)
	res, err := backend.NewFactory(logger).Create(startCtx, bcfg)
	startCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	repo := res.Repository
	if repo == nil {
		repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			logger.Error("Failed to open snapshot database", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
	}

	snapshots := worker.NewSnapshotWorker(res.Gateway, repo,
		[]string{cfg.UsersTable, cfg.JobsTable}, cfg.SnapshotKeep, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, relying on the periodic snapshot sweep", "interval", cfg.SnapshotInterval.String())
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		stats := snapshots.Stats()
		logger.Info("Worker statistics",
			"saved", stats.Saved, "unchanged", stats.Unchanged,
			"ignored", stats.Ignored, "failed", stats.Failed)
	})

	// Catch up on writes made while the worker was down.
	if err := snapshots.SnapshotAll(ctx); err != nil {
		logger.Error("Startup snapshot failed", log.FieldError, err)
	}
	go snapshots.RunPeriodic(ctx, cfg.SnapshotInterval)

	if amqpClient != nil {
		go func() {
			err := amqpClient.Consume(ctx, func(ctx context.Context, msg *amqp.TableWrittenMessage) error {
				res.Gateway.Invalidate(msg.Table)
				return snapshots.HandleTableWritten(ctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
