package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetload/internal/config"
	"github.com/JonMunkholm/sheetload/internal/core"
	"github.com/JonMunkholm/sheetload/internal/logging"
	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/session"
	"github.com/JonMunkholm/sheetload/internal/sink"
	_ "github.com/JonMunkholm/sheetload/internal/sink/mssql" // Register sink backends
	_ "github.com/JonMunkholm/sheetload/internal/sink/mysql"
	_ "github.com/JonMunkholm/sheetload/internal/sink/postgres"
	_ "github.com/JonMunkholm/sheetload/internal/sink/sqlite"
	"github.com/JonMunkholm/sheetload/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	types, err := schema.LoadTypeRegistry(cfg.Ingest.ColumnTypesFile)
	if err != nil {
		slog.Error("failed to load column types", "error", err)
		os.Exit(1)
	}
	slog.Info("column types loaded", "count", types.Len(), "file", cfg.Ingest.ColumnTypesFile)

	snk, err := sink.Open(ctx, sink.Config{
		Kind:            cfg.Database.Kind,
		DSN:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ChunkRows:       cfg.Ingest.ChunkRows,
	})
	if err != nil {
		slog.Error("failed to connect to database", "kind", cfg.Database.Kind, "error", err)
		os.Exit(1)
	}
	defer snk.Close()
	slog.Info("connected to database", "kind", cfg.Database.Kind)

	sessionDir := cfg.Session.Dir
	if cfg.Session.Store == session.KindFile && sessionDir == "" {
		sessionDir = filepath.Join(os.TempDir(), "sheetload-sessions")
	}
	store, err := session.Open(ctx, session.Options{
		Kind: cfg.Session.Store,
		TTL:  cfg.Session.TTL,
		Dir:  sessionDir,
		Redis: session.RedisOptions{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		},
	})
	if err != nil {
		slog.Error("failed to open session store", "store", cfg.Session.Store, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("session store ready", "store", cfg.Session.Store, "ttl", cfg.Session.TTL)

	service := core.NewService(snk, store, types, core.ServiceConfig{
		MaxConcurrent: cfg.Ingest.MaxConcurrent,
		MaxWait:       cfg.Ingest.MaxWaitTime,
		Timeout:       cfg.Ingest.Timeout,
		StrictNumeric: cfg.Ingest.StrictNumeric,
	})

	server := web.NewServer(service, cfg)

	// Background jobs stop with jobCtx
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	go session.RunSweeper(jobCtx, store, cfg.Session.SweepInterval)

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let in-flight ingests finish their database work
		if status := service.LimiterStatus(); status.Active > 0 {
			if err := service.WaitForIngests(shutdownCtx); err != nil {
				slog.Warn("ingests did not complete in time", "active", service.LimiterStatus().Active, "error", err)
			} else {
				slog.Info("all ingests completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
