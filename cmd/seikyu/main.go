package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/seikyu-app/seikyu/internal/app"
	"github.com/seikyu-app/seikyu/internal/backup"
	"github.com/seikyu-app/seikyu/internal/estimates"
	"github.com/seikyu-app/seikyu/internal/invoices"
	"github.com/seikyu-app/seikyu/internal/masterdata"
	"github.com/seikyu-app/seikyu/internal/observability"
	"github.com/seikyu-app/seikyu/internal/platform/db"
	"github.com/seikyu-app/seikyu/internal/rawsql"
	"github.com/seikyu-app/seikyu/internal/schema"
	"github.com/seikyu-app/seikyu/internal/settings"
	"github.com/seikyu-app/seikyu/internal/stock"
	"github.com/seikyu-app/seikyu/internal/verify"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	conn, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	gateway := db.NewGateway(conn, logger, metrics, db.Options{
		ReadAttempts: cfg.GatewayReadAttempts,
		ReadBackoff:  cfg.GatewayReadBackoff,
	})

	schemaRunner := schema.NewRunner(gateway, logger)
	if err := schemaRunner.Ensure(ctx); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	verifier := verify.NewVerifier(logger, metrics, cfg.WriteSettleDelay)

	masterRepo := masterdata.NewRepository(gateway)
	reconciler := stock.NewReconciler(masterRepo, logger, cfg.StockWriteThrottle)

	invoiceRepo := invoices.NewRepository(gateway)
	invoiceService := invoices.NewService(invoiceRepo, reconciler, verifier, logger, metrics)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	estimateRepo := estimates.NewRepository(gateway)
	estimateService := estimates.NewService(estimateRepo, invoiceService, verifier, logger, metrics)
	estimateHandler := estimates.NewHandler(logger, estimateService)

	masterHandler := masterdata.NewHandler(logger, masterRepo)

	settingsStore := settings.NewStore(gateway)
	settingsHandler := settings.NewHandler(logger, settingsStore)

	backupService := backup.NewService(cfg.DBPath, cfg.BackupDir, settingsStore, logger)
	backupHandler := backup.NewHandler(logger, backupService)

	rawService := rawsql.NewService(gateway, logger)
	rawHandler := rawsql.NewHandler(logger, rawService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		InvoicesHandler:   invoiceHandler,
		EstimatesHandler:  estimateHandler,
		MasterDataHandler: masterHandler,
		SettingsHandler:   settingsHandler,
		BackupHandler:     backupHandler,
		RawSQLHandler:     rawHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}

		if err := backupService.AutoBackup(shutdownCtx); err != nil {
			logger.Warn("auto backup on shutdown", slog.Any("error", err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
