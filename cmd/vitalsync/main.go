package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailscale.com/tsnet"

	"github.com/meltforce/vitalsync/internal/config"
	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/scheduler"
	"github.com/meltforce/vitalsync/internal/server"
	"github.com/meltforce/vitalsync/internal/session"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
	"github.com/meltforce/vitalsync/internal/syncstate"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("VitalSync starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Local sync state
	state, err := syncstate.Open(cfg.Sync.StateDir)
	if err != nil {
		log.Error("failed to open sync state", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Session resolution: token file when configured, dev fallback otherwise
	var resolver session.Resolver
	if cfg.Auth.TokenFile != "" {
		resolver = session.NewTokenResolver(
			session.Config{Secret: cfg.Auth.SessionSecret, Issuer: cfg.Auth.SessionIssuer},
			session.FileTokenSource(cfg.Auth.TokenFile),
		)
	} else {
		log.Warn("no token file configured, using static dev session")
		resolver = session.Static(session.Session{Mode: session.RemoteCapable, IdentityKey: "dev"})
	}

	// Sync engine and scheduler
	provider := source.NewClient(cfg.Provider.URL, cfg.Provider.RequestTimeout)
	eng := engine.New(provider, resolver, db, state, cfg.Sync.DaysBack, log)

	sched := scheduler.New(eng, cfg.Sync.Interval, log)
	sched.Start(ctx)
	defer sched.Stop()

	// HTTP surface
	srv := server.New(eng, sched, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
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
	log.Info("server stopped")
}
