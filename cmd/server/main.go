// Package main is the entry point for the wasmdb server binary.
// It loads the schema, replays the row log, opens the artifact metastore,
// and serves the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"wasmdb/internal/api"
	"wasmdb/internal/app"
	"wasmdb/internal/config"
	"wasmdb/internal/db"
	"wasmdb/internal/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	sch, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}
	logger.Info("schema loaded", "path", cfg.SchemaPath, "columns", sch.Arity(), "auto_timestamp", sch.AutoTimestamp())

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  4-connection pool for concurrent lookups.
	writeDB, readDB, err := db.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := db.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrate metastore: %w", err)
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		Schema:  sch,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer a.Close(context.Background()) //nolint:errcheck

	handler := api.NewHandler(a.Store, a.Registry, a.Engine, logger)
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(handler, cfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("wasmdb listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
