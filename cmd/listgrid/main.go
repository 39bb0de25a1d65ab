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

	"github.com/odyssey-erp/listgrid/internal/app"
	"github.com/odyssey-erp/listgrid/internal/catalog"
	"github.com/odyssey-erp/listgrid/internal/grid"
	gridhttp "github.com/odyssey-erp/listgrid/internal/grid/http"
	"github.com/odyssey-erp/listgrid/internal/observability"
	"github.com/odyssey-erp/listgrid/internal/ownership"
	"github.com/odyssey-erp/listgrid/internal/platform/cache"
	"github.com/odyssey-erp/listgrid/internal/platform/db"
	"github.com/odyssey-erp/listgrid/internal/querysvc"
	"github.com/odyssey-erp/listgrid/internal/shared"
	"github.com/odyssey-erp/listgrid/internal/users"
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
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("listgrid stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	definitions, err := catalog.LoadDir(cfg.GridDefinitionsDir)
	if err != nil {
		return err
	}
	logger.Info("grid definitions loaded", slog.Any("names", definitions.Names()))

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	userCache := cache.NewVersioned(redisClient, "users", cfg.UserCacheTTL)
	directory := users.NewDirectory(users.NewRepository(dbpool), userCache, logger)
	var audit *shared.AuditLogger
	if table := cfg.AuditTableIdentifier(); len(table) > 0 {
		audit = shared.NewAuditLogger(table...)
	}
	reassigner := ownership.NewReassigner(dbpool, cfg.OwnerTableIdentifier(), audit, logger)
	queryClient := querysvc.New(cfg.QueryServiceURL,
		querysvc.WithHTTPClient(&http.Client{Timeout: cfg.QueryServiceTimeout}),
		querysvc.WithLogger(logger),
	)

	registry := gridhttp.NewRegistry(gridhttp.RegistryOptions{
		IdleTTL: cfg.GridIdleTTL,
		MaxOpen: cfg.MaxGrids,
		Logger:  logger,
		OnOpen:  metrics.GridOpened,
		OnClose: metrics.GridClosed,
	})
	gridHandler := gridhttp.NewHandler(logger, definitions, registry, gridhttp.Dependencies{
		Query:  queryClient,
		Users:  directory,
		Owners: reassigner,
		Options: grid.Options{
			Debounce: cfg.SearchDebounce,
			Logger:   logger,
			Observer: metrics,
		},
	})

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		GridHandler:  gridHandler,
		UsersHandler: users.NewHandler(logger, directory),
		Metrics:      metrics,
		Ready: func(r *http.Request) error {
			if err := dbpool.Ping(r.Context()); err != nil {
				return err
			}
			return redisClient.Ping(r.Context()).Err()
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listgrid listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return registry.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		if err := userCache.ListenForInvalidation(gctx); err != nil {
			logger.Warn("user cache invalidation disabled", slog.Any("error", err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
