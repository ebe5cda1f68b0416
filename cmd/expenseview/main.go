package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expenseview/internal/aggregate"
	"expenseview/internal/backend"
	"expenseview/internal/cache"
	"expenseview/internal/cli"
	"expenseview/internal/export"
	apphttp "expenseview/internal/http"
	"expenseview/internal/log"
	"expenseview/internal/session"
	"expenseview/internal/view"
	"expenseview/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	store := session.NewStore()
	if err := cli.SeedSession(cfg, store); err != nil {
		logger.Error("Failed to seed session", log.FieldError, err)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Failed to create backend config", log.FieldError, err)
		os.Exit(1)
	}
	clock := aggregate.SystemClock{}
	backendConfig.Tokens = store
	backendConfig.Clock = clock

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(initCtx, backendConfig)
	initCancel()
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	status := view.NewStatus(cfg.StatusClearDelay)
	engine := aggregate.NewEngine(result.Source, result.Source, aggregate.Config{
		Clock:          clock,
		MaxConcurrency: cfg.AggregationMaxConcurrency,
		Logger:         logger,
	})
	list := view.NewExpenseList(result.Source, result.Source, store, view.ListConfig{
		PageSize: cfg.PageSize,
		Locale:   cfg.SortLocale,
		Status:   status,
		Logger:   logger,
	})
	dashboard := view.NewDashboard(engine, result.Source, result.Source, store, view.DashboardConfig{
		Clock:  clock,
		Status: status,
		Logger: logger,
	})

	caches := cache.NewManager(logger)
	caches.Register(result.CategoryCache)
	caches.StartCleanup(10 * time.Minute)

	deps := apphttp.Deps{
		List:       list,
		Dashboard:  dashboard,
		Session:    store,
		Auth:       result.Auth,
		Exporter:   export.NewService(logger),
		Categories: result.Source,
		Status:     status,
		Logger:     logger,

		CategoryCache: result.CategoryCache,
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	if result.Events != nil {
		refresher := worker.NewRefreshWorker(worker.Config{
			Consumer:   result.Events,
			Categories: result.Source,
			Chart:      dashboard,
			Gate:       store,
			Logger:     logger,
		})
		go func() {
			if err := refresher.Run(ctx); err != nil {
				logger.Error("Refresh worker stopped", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP not configured, expense events disabled")
	}

	if _, ok := store.CurrentPerson(); ok {
		go func() {
			warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := list.Load(warmCtx); err != nil {
				logger.Warn("Initial expense load failed", log.FieldError, err)
			}
			if _, err := dashboard.Refresh(warmCtx); err != nil {
				logger.Warn("Initial chart refresh failed", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting expenseview server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"amqp", result.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
