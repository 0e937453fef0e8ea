package mcp

import (
	"context"
	"errors"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/storage"
)

// --- Tool definitions ---

var toolTriggerSync = mcp.NewTool("trigger_sync",
	mcp.WithDescription("Run a sync pass now: pull metrics from the device provider, aggregate them into a daily summary, and persist snapshot and history rows. Returns the full pass result. If a pass is already in flight the call is rejected without side effects."),
	mcp.WithString("days_back", mcp.Description("How many days of samples to pull. Defaults to 7.")),
)

var toolGetSyncStatus = mcp.NewTool("get_sync_status",
	mcp.WithDescription("Report whether a sync pass is currently running and when the last pass completed."),
)

var toolGetSnapshot = mcp.NewTool("get_snapshot",
	mcp.WithDescription("Read the current health snapshot row for a user: latest day-level value per metric, null where never synced."),
	mcp.WithString("user", mcp.Required(), mcp.Description("User identity key")),
)

var toolGetHistory = mcp.NewTool("get_history",
	mcp.WithDescription("Read append-only history rows for a user, newest first. Each row is one completed sync pass."),
	mcp.WithString("user", mcp.Required(), mcp.Description("User identity key")),
	mcp.WithString("days", mcp.Description("Lookback window in days. Defaults to 30.")),
	mcp.WithString("limit", mcp.Description("Maximum rows to return. Defaults to 100.")),
)

// --- Tool handlers ---

func (h *handlers) triggerSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var opts engine.Options
	if raw := req.GetString("days_back", ""); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return mcp.NewToolResultError("days_back must be an integer"), nil
		}
		opts.DaysBack = days
	}

	res := h.engine.Sync(ctx, opts)
	if res.Rejected() {
		return mcp.NewToolResultError("a sync pass is already in flight"), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getSyncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.engine.SyncStatus())
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError("user parameter is required"), nil
	}

	row, err := h.engine.StoredSnapshot(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError("no snapshot for user " + user), nil
		}
		h.log.Error("mcp get_snapshot", "user", user, "error", err)
		return mcp.NewToolResultError("reading snapshot: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(row)
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError("user parameter is required"), nil
	}

	days, err := intArg(req, "days", 30)
	if err != nil {
		return mcp.NewToolResultError("days must be an integer"), nil
	}
	limit, err := intArg(req, "limit", 100)
	if err != nil {
		return mcp.NewToolResultError("limit must be an integer"), nil
	}

	rows, err := h.engine.History(ctx, user, days, limit)
	if err != nil {
		h.log.Error("mcp get_history", "user", user, "error", err)
		return mcp.NewToolResultError("reading history: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return result, nil
}

func intArg(req mcp.CallToolRequest, name string, def int) (int, error) {
	raw := req.GetString(name, "")
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
