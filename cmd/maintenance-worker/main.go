package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/angelmondragon/medrec-backend/internal/catalog"
	"github.com/angelmondragon/medrec-backend/internal/cron"
	"github.com/angelmondragon/medrec-backend/internal/inference"
	"github.com/angelmondragon/medrec-backend/internal/uploads"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/angelmondragon/medrec-backend/pkg/redis"
	"github.com/angelmondragon/medrec-backend/pkg/storage/driver"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const lockName = "maintenance"

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("jobs", "", "comma-separated job names to run (default: all)")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "interval": cfg.Maintenance.Interval.String()})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	store, err := driver.New(ctx, cfg, logg)
	requireResource(ctx, logg, "storage", err)

	validator, err := inference.NewValidator()
	requireResource(ctx, logg, "inference validator", err)

	conn := dbClient.DB()
	maintenance, err := uploads.NewMaintenance(
		uploads.NewRepository(conn),
		catalog.NewRepository(conn),
		store,
		inference.NewStub(),
		validator,
		cfg.Uploads,
		logg,
		metrics.NewRecognitionMetrics(prometheus.DefaultRegisterer),
	)
	requireResource(ctx, logg, "uploads maintenance", err)

	retryJob, err := cron.NewInferenceRetryJob(cron.InferenceRetryJobParams{
		Logger:     logg,
		Uploads:    maintenance,
		RetryAfter: cfg.Maintenance.RetryAfter,
		Batch:      cfg.Maintenance.RetryBatch,
	})
	requireResource(ctx, logg, "inference retry job", err)

	retentionJob, err := cron.NewUploadRetentionJob(cron.UploadRetentionJobParams{
		Logger:        logg,
		Uploads:       maintenance,
		RetentionDays: cfg.Maintenance.RetentionDays,
		Batch:         cfg.Maintenance.PurgeBatch,
	})
	requireResource(ctx, logg, "upload retention job", err)

	registry, err := cron.NewRegistry(retryJob, retentionJob)
	requireResource(ctx, logg, "job registry", err)
	registry, err = registry.Only(splitList(*only))
	requireResource(ctx, logg, "job selection", err)
	ctx = logg.WithField(ctx, "jobs", registry.Names())

	lock, err := cron.NewRedisLock(redisClient, redisClient.JobLockKey(lockName), cfg.Maintenance.LockTTL)
	requireResource(ctx, logg, "maintenance lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Maintenance.Interval,
	})
	requireResource(ctx, logg, "maintenance service", err)

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "maintenance cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "maintenance worker started")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
