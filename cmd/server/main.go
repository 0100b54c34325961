// Package main is the entry point for the sleepfit-stats API server.
//
// The main package stays small: read configuration, build the logger and
// the database, hand them to internal/server, and wait for a signal.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/sleepfit-stats/internal/config"
	"github.com/sakif/sleepfit-stats/internal/logger"
	sqliteRepo "github.com/sakif/sleepfit-stats/internal/repository/sqlite"
	"github.com/sakif/sleepfit-stats/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// Everything comes from the environment; see internal/config.
	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	// === 2. DATABASE ===
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatal("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
	}

	db, err := sqliteRepo.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", slog.String("error", err.Error()))
	}
	defer db.Close()

	if err := db.Migrate(log.Logger); err != nil {
		log.Fatal("failed to run migrations", slog.String("error", err.Error()))
	}

	// === 3. SERVER ===
	srv, err := server.New(cfg, db, log.Logger)
	if err != nil {
		log.Fatal("failed to create server", slog.String("error", err.Error()))
	}

	// Start blocks until Ctrl+C or SIGTERM, then drains in-flight requests.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		// os.Exit skips defers.
		db.Close()
		os.Exit(1)
	}
}
