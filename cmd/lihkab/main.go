package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"lihkab/internal/amqp"
	"lihkab/internal/auth"
	"lihkab/internal/backend"
	"lihkab/internal/cache"
	"lihkab/internal/cli"
	apphttp "lihkab/internal/http"
	"lihkab/internal/log"
	"lihkab/internal/services"
	"lihkab/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.GatewayTimeout)
	defer startCancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(startCtx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	caches.Register(res.Gateway)
	caches.StartCleanup(time.Minute)

	secret := cfg.SessionSecret
	if secret == "" {
		// Only the memory backend may run without a secret; sessions then die with the process.
		secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		logger.Warn("SESSION_SECRET not set, using a random one")
	}
	sessions, err := auth.NewManager(secret, cfg.SessionTTL, cfg.SessionSecure)
	if err != nil {
		logger.Error("Failed to create session manager", log.FieldError, err)
		os.Exit(1)
	}

	// Remote writes arrive through AMQP and drop our cached copy.
	subCtx, subCancel := context.WithCancel(context.Background())
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without write notifications", log.FieldError, err)
		} else {
			res.Gateway.SetNotifier(amqpClient)
			go func() {
				err := amqpClient.Subscribe(subCtx, worker.CacheInvalidator(res.Gateway, logger))
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Cache invalidation subscription ended", log.FieldError, err)
				}
			}()
			logger.Info("Publishing table writes", "exchange", cfg.AMQPExchange)
		}
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Jobs:           services.NewJobService(res.Gateway, cfg.JobsTable, cfg.ConflictPolicy, logger),
		Users:          services.NewUserService(res.Gateway, cfg.UsersTable, logger),
		Sessions:       sessions,
		Logger:         logger,
		GatewayTimeout: cfg.GatewayTimeout,
		Ready:          res.Ready,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = cfg.GatewayTimeout + 15*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		subCancel()
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	})

	srv.Start()
	logger.Info("Starting lihkab server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"conflict_policy", cfg.ConflictPolicy,
		"amqp_enabled", amqpClient != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
