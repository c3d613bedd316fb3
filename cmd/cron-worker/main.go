package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/accounting"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/cron"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/idempotency"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/sessions"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/config"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/metrics"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/migrate"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	store := idempotency.NewStore(conn)

	staleJob, err := cron.NewStaleIdempotencyJob(cron.StaleIdempotencyJobParams{
		Logger:  logg,
		Store:   store,
		Timeout: cfg.Ingest.ProcessingTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale idempotency job", err)
		os.Exit(1)
	}

	purgeJob, err := cron.NewIdempotencyPurgeJob(cron.IdempotencyPurgeJobParams{
		Logger:    logg,
		Store:     store,
		Retention: cfg.Ingest.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency purge job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(staleJob, purgeJob)

	if cfg.Session.AutoClose {
		poster, err := accounting.NewPoster(accounting.NewRepository(conn), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create accounting poster", err)
			os.Exit(1)
		}
		sessionMgr, err := sessions.NewManager(sessions.NewRepository(conn), poster, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create session manager", err)
			os.Exit(1)
		}
		idleJob, err := cron.NewIdleSessionJob(cron.IdleSessionJobParams{
			Logger:      logg,
			Sessions:    sessionMgr,
			IdleTimeout: cfg.Session.IdleTimeout,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create idle session job", err)
			os.Exit(1)
		}
		registry.Register(idleJob)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
