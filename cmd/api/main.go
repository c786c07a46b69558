package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bozor-market/api/internal/di"
	"github.com/bozor-market/api/internal/handlers"
	"github.com/bozor-market/api/internal/platform/auth"
	"github.com/bozor-market/api/internal/platform/config"
	"github.com/bozor-market/api/internal/platform/observability"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal("failed to initialise token verifier", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, di.ContainerDeps{
		Clock:  time.Now,
		Logger: observability.ServiceLogFunc(logger.Named("services")),
	})
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	sched := startSweep(logger.Named("sweep"), cfg, container)

	health := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck(func(context.Context) error {
			return container.Store.Ping()
		}),
	)

	routerOpts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			verifier.Optional(),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithCartRoutes(handlers.NewCartHandlers(
			container.Services.Cart,
			handlers.WithMergeEnabled(cfg.Features.EnableMerge),
		).Routes),
		handlers.WithProductRoutes(handlers.NewProductHandlers(container.Services.Catalog).Routes),
	}
	if container.Services.Wishlist != nil {
		routerOpts = append(routerOpts, handlers.WithWishlistRoutes(
			handlers.NewWishlistHandlers(container.Services.Wishlist).Routes,
		))
	}

	router := handlers.NewRouter(routerOpts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("bozor-market api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if sched != nil {
		stopCtx := sched.Stop()
		<-stopCtx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// startSweep schedules the periodic purge of guest carts idle past the
// retention window.
func startSweep(logger *zap.Logger, cfg config.Config, container *di.Container) *cron.Cron {
	sched := cron.New(cron.WithParser(cronParser))

	_, err := sched.AddFunc(cfg.Guest.SweepSchedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().Add(-cfg.Guest.Retention)
		removed, err := container.Guest.DeleteStale(runCtx, cutoff)
		if err != nil {
			logger.Error("guest cart sweep failed", zap.Error(err))
			return
		}
		if removed > 0 {
			logger.Info("guest cart sweep removed stale carts", zap.Int("count", removed))
		}
	})
	if err != nil {
		logger.Error("failed to schedule guest cart sweep", zap.Error(err))
		return nil
	}

	sched.Start()
	return sched
}
