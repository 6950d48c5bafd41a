package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/shoptracker/shoptracker-backend/api/routes"
	"github.com/shoptracker/shoptracker-backend/internal/access"
	"github.com/shoptracker/shoptracker-backend/internal/accounts"
	"github.com/shoptracker/shoptracker-backend/internal/archive"
	"github.com/shoptracker/shoptracker-backend/internal/audit"
	"github.com/shoptracker/shoptracker-backend/internal/inventory"
	"github.com/shoptracker/shoptracker-backend/pkg/config"
	"github.com/shoptracker/shoptracker-backend/pkg/db"
	"github.com/shoptracker/shoptracker-backend/pkg/logger"
	"github.com/shoptracker/shoptracker-backend/pkg/metrics"
	"github.com/shoptracker/shoptracker-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	var closers []func() error

	// The archive database is optional: without a DSN the in-memory
	// stores simply run without a write-behind mirror.
	var dbClient *db.Client
	var archiveSvc *archive.Service
	if cfg.DB.Enabled() {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		closers = append(closers, dbClient.Close)

		archiveSvc, err = archive.NewService(ctx, dbClient, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap archive", err)
			os.Exit(1)
		}
		archiveSvc.Start(ctx)
		closers = append([]func() error{archiveSvc.Close}, closers...)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
	}

	mutationMetrics := metrics.NewMutationMetrics(prometheus.DefaultRegisterer)
	policy := access.NewPolicy(cfg.Policy.AllowUserAdjust)
	auditLog := audit.NewLog(auditSink(archiveSvc))

	directory := accounts.NewDirectory()
	accountsSvc, err := accounts.NewService(directory, policy, auditLog, logg, mutationMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create directory service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(policy, auditLog, cfg.Policy.DefaultThreshold, eventSink(archiveSvc), logg, mutationMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create inventory engine", err)
		os.Exit(1)
	}

	if cfg.Seed.Accounts {
		accountsSvc.SeedDefaultAccountsIfEmpty(ctx)
	}
	if cfg.Seed.Catalog {
		inventorySvc.SeedDefaultStockIfEmpty(ctx)
	}

	router := routes.NewRouter(routes.Deps{
		Cfg:         cfg,
		Logg:        logg,
		Policy:      policy,
		Directory:   directory,
		Accounts:    accountsSvc,
		Inventory:   inventorySvc,
		Audit:       auditLog,
		DBPinger:    dbPinger(dbClient),
		RedisClient: redisClient,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(logCtx, "signal", sig.String()), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		closeErr := server.Shutdown(shutdownCtx)
		for _, closeFn := range closers {
			closeErr = multierr.Append(closeErr, closeFn())
		}
		if closeErr != nil {
			logg.Error(logCtx, "shutdown finished with errors", closeErr)
			os.Exit(1)
		}
	}
}

// auditSink and eventSink keep a nil archive from becoming a non-nil
// interface value.
func auditSink(svc *archive.Service) audit.Sink {
	if svc == nil {
		return nil
	}
	return svc
}

func eventSink(svc *archive.Service) inventory.EventSink {
	if svc == nil {
		return nil
	}
	return svc
}

func dbPinger(client *db.Client) db.Pinger {
	if client == nil {
		return nil
	}
	return client
}
