package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexdesk/lexdesk/internal/app"
	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/auth"
	"github.com/lexdesk/lexdesk/internal/menu"
	"github.com/lexdesk/lexdesk/internal/observability"
	"github.com/lexdesk/lexdesk/internal/pipeline"
	"github.com/lexdesk/lexdesk/internal/platform/cache"
	"github.com/lexdesk/lexdesk/internal/platform/db"
	"github.com/lexdesk/lexdesk/internal/rbac"
	"github.com/lexdesk/lexdesk/internal/token"
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

	tokens, err := token.NewService(cfg.TokenIssuer, cfg.TokenSecret,
		token.WithRetiredSecrets(cfg.TokenRetiredSecrets...),
		token.WithTTL(cfg.TokenTTL),
	)
	if err != nil {
		logger.Error("token service", slog.Any("error", err))
		os.Exit(1)
	}
	revocations := token.NewRevocationList(redisClient)

	rbacRepo := rbac.NewRepository(dbpool)
	resolver := rbac.NewResolver(rbacRepo)

	auditRepo := audit.NewRepository(dbpool)
	auditor := audit.NewLogger(auditRepo, logger, audit.WithWriteTimeout(cfg.AuditWriteTimeout))
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, resolver, tokens)
	authHandler := auth.NewHandler(logger, authService, revocations, auditor)

	menuRepo := menu.NewRepository(dbpool)
	menuVersions := menu.NewRedisVersionSource(redisClient)
	menuEngine := menu.NewEngine(menuRepo, menuVersions, logger, menu.WithStoreTimeout(cfg.MenuStoreTimeout))
	menuHandler := menu.NewHandler(logger, menuEngine, menuRepo)

	metrics := observability.NewMetrics()

	table := pipeline.NewTable()
	for _, spec := range app.CoreRoutes(authHandler, menuHandler, auditHandler) {
		if err := table.Register(spec); err != nil {
			logger.Error("register route", slog.String("pattern", spec.Pattern), slog.Any("error", err))
			os.Exit(1)
		}
	}

	guarded := pipeline.New(pipeline.Config{
		Logger:      logger,
		Table:       table,
		Tokens:      tokens,
		Revocations: revocations,
		Authorizer:  resolver,
		Auditor:     auditor,
		Metrics:     metrics,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Pipeline:    guarded,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
