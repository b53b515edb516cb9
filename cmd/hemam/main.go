package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hemam-center/hemam/internal/admin"
	"github.com/hemam-center/hemam/internal/app"
	"github.com/hemam-center/hemam/internal/auth"
	"github.com/hemam-center/hemam/internal/authz"
	"github.com/hemam-center/hemam/internal/directory"
	"github.com/hemam-center/hemam/internal/observability"
	"github.com/hemam-center/hemam/internal/platform/cache"
	"github.com/hemam-center/hemam/internal/platform/db"
	"github.com/hemam-center/hemam/internal/ratelimit"
	"github.com/hemam-center/hemam/internal/shared"
	"github.com/hemam-center/hemam/internal/uploads"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "hemam_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	manager := authz.NewManager(authz.DefaultCatalog())

	directoryRepo := directory.NewRepository(dbpool)
	directoryService := directory.NewService(directoryRepo, manager)

	resolver := auth.NewSessionResolver(sessionManager)
	guard := authz.NewGuard(resolver, directoryService, manager, logger)

	limits := ratelimit.NewSet(cfg.RateLimitConfig())
	limits.StartSweepers()
	defer limits.StopSweepers()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, directoryService, logger)
	authHandler := auth.NewHandler(authService, guard, sessionManager, csrfManager, auditLogger, logger)

	adminHandler := admin.NewHandler(directoryService, manager, auditLogger, logger)

	uploadsRepo := uploads.NewRepository(dbpool)
	uploadsHandler := uploads.NewHandler(uploadsRepo, auditLogger, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guard:          guard,
		Limits:         limits,
		AuthHandler:    authHandler,
		AdminHandler:   adminHandler,
		UploadsHandler: uploadsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
