package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. The storage backends
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListSessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error)
	DailyProgress(ctx context.Context, day time.Time) (*models.DailyProgress, error)
	DailyReps(ctx context.Context, start, end time.Time) ([]models.DailyReps, error)
}

// Compile-time checks: both storage backends satisfy DataSource.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*storage.LiteDB)(nil)
)
