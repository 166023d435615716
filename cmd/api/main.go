package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/countsheet-backend/api/routes"
	"github.com/angelmondragon/countsheet-backend/internal/auth"
	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/internal/export"
	"github.com/angelmondragon/countsheet-backend/internal/reports"
	"github.com/angelmondragon/countsheet-backend/internal/users"
	"github.com/angelmondragon/countsheet-backend/pkg/auth/session"
	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/db"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/metrics"
	"github.com/angelmondragon/countsheet-backend/pkg/migrate"
	"github.com/angelmondragon/countsheet-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	countMetrics := metrics.NewCountMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	reportsRepo := reports.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.ServiceParams{
		Repo:    reportsRepo,
		Tx:      dbClient,
		Users:   usersRepo,
		Locker:  redisClient,
		Metrics: countMetrics,
		Logger:  logg,
		Config:  cfg.Counts,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reports service", err)
		os.Exit(1)
	}

	workspaces := entries.NewWorkspaces(entries.WorkspaceParams{
		Store:          reportsRepo,
		PageSize:       cfg.Counts.PageSize,
		PersistTimeout: cfg.Counts.PersistTimeout,
		TTL:            cfg.Counts.WorkspaceTTL,
		Metrics:        countMetrics,
		Jobs:           jobMetrics,
		Logger:         logg,
	})
	go workspaces.Run(ctx, 0)

	entriesService, err := entries.NewService(reportsRepo, workspaces)
	if err != nil {
		logg.Error(ctx, "failed to create entries service", err)
		os.Exit(1)
	}

	exportService, err := export.NewService(entriesService, countMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create export service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			authService,
			usersService,
			reportsService,
			entriesService,
			exportService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}
