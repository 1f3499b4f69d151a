// Package main provides the HTTP API server for driveindex.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/driveindex/internal/auth"
	"github.com/raphaelgruber/driveindex/internal/config"
	"github.com/raphaelgruber/driveindex/internal/db"
	"github.com/raphaelgruber/driveindex/internal/drive"
	"github.com/raphaelgruber/driveindex/internal/metrics"
	"github.com/raphaelgruber/driveindex/internal/models"
	"github.com/raphaelgruber/driveindex/internal/server"
	"github.com/raphaelgruber/driveindex/internal/service"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting driveindex-server", "port", cfg.ServerPort)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbClient.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("DRIVEINDEX_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}

	// Runs left in a live status by a previous process can never
	// progress again; fail them before accepting new work.
	if n, err := dbClient.MarkInterruptedRuns(ctx); err != nil {
		slog.Warn("failed to sweep interrupted runs", "error", err)
	} else if n > 0 {
		slog.Info("marked interrupted runs as failed", "count", n)
	}
	cancel()

	tracker := service.NewTracker(dbClient)
	orchestrator := service.NewOrchestrator(service.OrchestratorConfig{
		Tracker:     tracker,
		Credentials: auth.NewStoreProvider(dbClient, cfg.TokenSecret),
		Listers: func(provider models.ProviderType, pageSize int) (drive.Lister, error) {
			return drive.ForProvider(provider, drive.Options{
				PageSize: pageSize,
				Timeout:  cfg.RequestTimeout,
			})
		},
		Documents:  dbClient,
		Extractors: service.NewExtractorRegistry(),
		Retry: drive.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			Base:        cfg.RetryBase,
		},
		Concurrency: cfg.WalkerConcurrency,
		Stats:       metrics.NewCollector(),
	})

	srv := server.New(orchestrator, tracker, dbClient, logger)

	go func() {
		if err := srv.Listen(":" + cfg.ServerPort); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
