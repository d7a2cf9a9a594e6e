package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/shravan/physio/internal/config"
	"github.com/shravan/physio/internal/exercise"
	physiomcp "github.com/shravan/physio/internal/mcp"
	"github.com/shravan/physio/internal/server"
	"github.com/shravan/physio/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	verbose := flag.Bool("v", false, "log frame pushes and other debug output")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("Physio starting", "version", Version)

	// PHYSIO_* overrides may live in a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("reading .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, lite, err := openStore(ctx, cfg.Database, *migrateOnly, log)
	if err != nil {
		log.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	if db == nil {
		log.Info("migrate-only: exiting")
		return
	}
	defer db.Close()
	log.Info("database connected", "driver", cfg.Database.Driver)

	opts := server.Options{
		APIKey:        cfg.Auth.APIKey,
		MinConfidence: cfg.Coach.Thresholds.MinConfidence,
	}

	// Listen on the tailnet or plain TCP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		opts.Identity = server.TailscaleIdentity(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	srv := server.New(db, exercise.NewSet(cfg.Coach.Thresholds), log, opts)

	srv.MountMCP(mcpserver.NewStreamableHTTPServer(physiomcp.New(db, Version, log)))

	if cfg.Server.Admin {
		if lite == nil {
			log.Warn("admin console needs the sqlite driver; skipping")
		} else {
			mux := http.NewServeMux()
			if err := lite.AttachAdminRoutes(mux); err != nil {
				log.Error("admin routes failed", "error", err)
				os.Exit(1)
			}
			srv.MountDebug(mux)
			log.Info("admin console mounted", "path", "/debug/")
		}
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("saving live sessions", "error", err)
	}
	log.Info("server stopped")
}

// openStore migrates and opens the configured backend. With migrateOnly set
// it returns a nil store once migrations are applied. lite is non-nil for
// the sqlite driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, migrateOnly bool, log *slog.Logger) (storage.Store, *storage.LiteDB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		// OpenLite migrates on open.
		lite, err := storage.OpenLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("migrations applied", "path", cfg.Path)
		if migrateOnly {
			return nil, nil, lite.Close()
		}
		return lite, lite, nil
	default:
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
		if migrateOnly {
			return nil, nil, nil
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, nil, nil
	}
}
