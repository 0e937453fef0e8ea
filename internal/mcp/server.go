// Package mcp exposes the sync engine over the Model Context Protocol so
// assistants can trigger passes and read synced health data.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/storage"
)

// Engine is the slice of the sync engine the MCP tools need.
type Engine interface {
	Sync(ctx context.Context, opts engine.Options) engine.Result
	SyncStatus() engine.Status
	StoredSnapshot(ctx context.Context, userID string) (*storage.CurrentSnapshotRow, error)
	History(ctx context.Context, userID string, daysBack, limit int) ([]storage.HistoryLogRow, error)
}

// New creates an MCP server with all tools registered.
func New(eng Engine, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("VitalSync", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("VitalSync health data sync engine. Trigger sync passes against the on-device provider and read the resulting day-level snapshots and history."),
	)

	h := &handlers{engine: eng, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolTriggerSync, Handler: h.triggerSync},
		server.ServerTool{Tool: toolGetSyncStatus, Handler: h.getSyncStatus},
		server.ServerTool{Tool: toolGetSnapshot, Handler: h.getSnapshot},
		server.ServerTool{Tool: toolGetHistory, Handler: h.getHistory},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	engine Engine
	log    *slog.Logger
}
