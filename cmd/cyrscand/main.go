package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyramp/cyrscan/internal/async"
	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/ingest"
	"github.com/cyramp/cyrscan/internal/jobcache"
	"github.com/cyramp/cyrscan/internal/packaging"
	"github.com/cyramp/cyrscan/internal/repository"
	"github.com/cyramp/cyrscan/internal/server"
	"github.com/cyramp/cyrscan/internal/validation"
	"github.com/cyramp/cyrscan/internal/workbook"
)

func main() {
	cfg, err := common.LoadConfig(getenv("CYRSCAN_ENV_FILE", ".env"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	parser, err := workbook.NewParser(workbook.LayoutFromConfig(cfg.Workbook))
	if err != nil {
		logger.Error("invalid workbook layout", "error", err)
		os.Exit(1)
	}
	locator := workbook.NewLocator(cfg.Workbook.Dir, logger)
	loader := workbook.NewLoader(locator, workbook.NewSource(cfg.Workbook.TempDir, logger), parser, cfg.Workbook.IOTimeout, logger)
	cache := jobcache.New(loader.LoadJob, jobcache.WithLogger(logger), jobcache.WithLoadTimeout(2*cfg.Workbook.IOTimeout))

	queue := async.NewWorkerQueue(logger,
		async.WithWorkers(cfg.Packaging.Workers),
		async.WithQueueSize(cfg.Packaging.QueueSize),
		async.WithTaskTimeout(cfg.Packaging.SideEffectTime),
	)

	pallets := repository.NewPalletRepository(db, logger)
	manifests := repository.NewPackagingRepository(db, logger)
	pkg := packaging.NewService(pallets, loader, manifests,
		packaging.NewWriter(cfg.Packaging.OutputDir, cfg.Packaging.TemplatePath, logger),
		queue,
		packaging.WithExporter(packaging.NewExporter(cfg.Packaging.ExportCommand)),
		packaging.WithNotifier(packaging.NewNotifier(cfg.Packaging.NtfyTopic, cfg.Packaging.NotifyTimeout), cfg.Packaging.Recipients),
		packaging.WithLogger(logger),
	)

	api := server.New(server.Deps{
		Pallets:   pallets,
		Scans:     repository.NewScanRepository(db, logger),
		Stats:     repository.NewStatsRepository(db, logger),
		Manifests: manifests,
		Validator: validation.NewValidator(cache, logger),
		Parts:     cache,
		Workbooks: locator,
		Packaging: pkg,
		Store:     db,
	}, server.WithAPIToken(cfg.Server.APIToken), server.WithLogger(logger))
	if cfg.Server.APIToken == "" {
		logger.Warn("API_TOKEN is empty, /api routes are not authenticated")
	}

	if cfg.Workbook.WarmOnChange {
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Dir:      cfg.Workbook.Dir,
			Debounce: cfg.Workbook.WarmDebounce,
		}, logger)
		if err != nil {
			logger.Warn("workbook watcher disabled", "dir", cfg.Workbook.Dir, "error", err)
		} else {
			go ingest.NewWarmer(cache, logger).Run(ctx, paths, errs)
			logger.Info("workbook watcher started", "dir", cfg.Workbook.Dir)
		}
	}

	health := server.NewHealthServer(db, logger)
	healthLis, err := net.Listen("tcp", cfg.Server.HealthAddr)
	if err != nil {
		logger.Error("failed to listen on health address", "addr", cfg.Server.HealthAddr, "error", err)
		os.Exit(1)
	}
	go health.Monitor(ctx, 15*time.Second)
	go func() {
		if err := health.Serve(healthLis); err != nil {
			logger.Error("health server stopped", "error", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("cyrscan listening", "addr", cfg.Server.HTTPAddr, "health_addr", cfg.Server.HealthAddr, "db", db.Dialect())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	health.Stop()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped", "cache", cache.Stats())
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
