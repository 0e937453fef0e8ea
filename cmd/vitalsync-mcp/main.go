// vitalsync-mcp runs the MCP server over stdio for local assistant use. It
// talks to the same database and device provider as the main daemon but
// never starts the background scheduler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/vitalsync/internal/config"
	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/mcp"
	"github.com/meltforce/vitalsync/internal/session"
	"github.com/meltforce/vitalsync/internal/source"
	"github.com/meltforce/vitalsync/internal/storage"
	"github.com/meltforce/vitalsync/internal/syncstate"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	state, err := syncstate.Open(cfg.Sync.StateDir)
	if err != nil {
		log.Error("failed to open sync state", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	var resolver session.Resolver
	if cfg.Auth.TokenFile != "" {
		resolver = session.NewTokenResolver(
			session.Config{Secret: cfg.Auth.SessionSecret, Issuer: cfg.Auth.SessionIssuer},
			session.FileTokenSource(cfg.Auth.TokenFile),
		)
	} else {
		resolver = session.Static(session.Session{Mode: session.RemoteCapable, IdentityKey: "dev"})
	}

	provider := source.NewClient(cfg.Provider.URL, cfg.Provider.RequestTimeout)
	eng := engine.New(provider, resolver, db, state, cfg.Sync.DaysBack, log)

	s := mcp.New(eng, Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
