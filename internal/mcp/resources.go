package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shravan/physio/internal/exercise"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) exerciseCatalog(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, exercise.Catalog())
}

func (h *handlers) today(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	now := time.Now()
	progress, err := h.ds.DailyProgress(ctx, now)
	if err != nil {
		return nil, err
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sessions, err := h.ds.ListSessions(ctx, start, start.AddDate(0, 0, 1), "")
	if err != nil {
		h.log.Warn("today: session query failed", "error", err)
	}

	return jsonContents(req.Params.URI, map[string]any{
		"progress": progress,
		"sessions": sessions,
	})
}

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	sessions, err := h.ds.ListSessions(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, sessions)
}
