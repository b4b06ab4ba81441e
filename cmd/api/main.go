package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/medrec-backend/api"
	"github.com/angelmondragon/medrec-backend/api/routes"
	"github.com/angelmondragon/medrec-backend/internal/auth"
	"github.com/angelmondragon/medrec-backend/internal/catalog"
	"github.com/angelmondragon/medrec-backend/internal/inference"
	"github.com/angelmondragon/medrec-backend/internal/uploads"
	"github.com/angelmondragon/medrec-backend/internal/users"
	"github.com/angelmondragon/medrec-backend/pkg/auth/session"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/angelmondragon/medrec-backend/pkg/migrate"
	"github.com/angelmondragon/medrec-backend/pkg/redis"
	"github.com/angelmondragon/medrec-backend/pkg/storage/driver"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}
	resetTokens, err := session.NewResetTokens(redisClient, cfg.PasswordReset)
	if err != nil {
		logg.Error(ctx, "failed to create reset token store", err)
		os.Exit(1)
	}

	store, err := driver.New(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storage", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireService(ctx, logg, "auth", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password})
	requireService(ctx, logg, "register", err)

	staffRegisterService, err := auth.NewStaffRegisterService(auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password})
	requireService(ctx, logg, "staff register", err)

	resetService, err := auth.NewPasswordResetService(auth.PasswordResetParams{
		UserRepo:       userRepo,
		Tokens:         resetTokens,
		PasswordConfig: cfg.Password,
		ResetConfig:    cfg.PasswordReset,
		ExposeToken:    !cfg.App.IsProd(),
		Logger:         logg,
	})
	requireService(ctx, logg, "password reset", err)

	usersService, err := users.NewService(userRepo, sessionManager, store, cfg.Password, logg)
	requireService(ctx, logg, "users", err)

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo, cfg.Catalog, logg)
	requireService(ctx, logg, "catalog", err)

	importer, err := catalog.NewImporter(catalogService, logg, metrics.NewImportMetrics(prometheus.DefaultRegisterer))
	requireService(ctx, logg, "catalog importer", err)

	exporter, err := catalog.NewExporter(catalogRepo)
	requireService(ctx, logg, "catalog exporter", err)

	if cfg.FeatureFlags.SeedSample {
		report, err := importer.LoadSample(ctx)
		if err != nil {
			logg.Error(ctx, "failed to seed sample medicines", err)
			os.Exit(1)
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"created": report.Created, "updated": report.Updated}), "sample medicines loaded")
	}

	validator, err := inference.NewValidator()
	requireService(ctx, logg, "inference validator", err)

	uploadsService, err := uploads.NewService(
		uploads.NewRepository(conn),
		catalogRepo,
		store,
		inference.NewStub(),
		validator,
		cfg.Uploads,
		logg,
		metrics.NewRecognitionMetrics(prometheus.DefaultRegisterer),
	)
	requireService(ctx, logg, "uploads", err)

	router := routes.NewRouter(cfg, logg, routes.Deps{
		DB:            dbClient,
		Redis:         redisClient,
		RateLimiter:   redisClient,
		Sessions:      sessionManager,
		Storage:       store,
		Auth:          authService,
		Register:      registerService,
		StaffRegister: staffRegisterService,
		PasswordReset: resetService,
		Users:         usersService,
		Catalog:       catalogService,
		Importer:      importer,
		Exporter:      exporter,
		Uploads:       uploadsService,
		Metrics:       promhttp.Handler(),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": store.Driver(),
	})
	logg.Info(serverCtx, "starting api server")

	if err := api.Serve(serverCtx, api.NewServer(addr, router), logg); err != nil {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to create service", err)
	os.Exit(1)
}
