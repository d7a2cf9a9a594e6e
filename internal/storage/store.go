package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shravan/physio/internal/models"
)

// Store is the session history backend. DB and LiteDB both satisfy it.
type Store interface {
	SaveSession(ctx context.Context, row models.SessionRow) error
	ListSessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error)
	DailyProgress(ctx context.Context, day time.Time) (*models.DailyProgress, error)
	DailyReps(ctx context.Context, start, end time.Time) ([]models.DailyReps, error)
	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*LiteDB)(nil)
)
