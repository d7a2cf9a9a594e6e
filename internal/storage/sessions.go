package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shravan/physio/internal/models"
)

const sessionColumns = `id, exercise, started_at, ended_at, reps, frames,
	 detected_frames, correct_frames, skipped_frames`

// SaveSession stores a finished session. Saving the same ID twice keeps the
// first row.
func (db *DB) SaveSession(ctx context.Context, row models.SessionRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO NOTHING`,
		row.ID, row.Exercise, row.StartedAt, row.EndedAt, row.Reps, row.Frames,
		row.DetectedFrames, row.CorrectFrames, row.SkippedFrames)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// ListSessions returns sessions started in [start, end), newest first. An
// empty exercise matches all exercises.
func (db *DB) ListSessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE started_at >= $1 AND started_at < $2 AND ($3 = '' OR exercise = $3)
		 ORDER BY started_at DESC`,
		start, end, exercise)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	return scanSessionRows(rows)
}

// GetSession returns one stored session.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)

	var s models.SessionRow
	err := row.Scan(&s.ID, &s.Exercise, &s.StartedAt, &s.EndedAt, &s.Reps, &s.Frames,
		&s.DetectedFrames, &s.CorrectFrames, &s.SkippedFrames)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

// DailyProgress summarises the calendar day containing day, in day's
// location.
func (db *DB) DailyProgress(ctx context.Context, day time.Time) (*models.DailyProgress, error) {
	start, end := dayBounds(day)
	rows, err := db.ListSessions(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	p := summarizeDay(start, rows)
	return &p, nil
}

// DailyReps returns rep totals per day and exercise for sessions started in
// [start, end).
func (db *DB) DailyReps(ctx context.Context, start, end time.Time) ([]models.DailyReps, error) {
	rows, err := db.ListSessions(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	return groupDailyReps(rows, start.Location()), nil
}

func scanSessionRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.SessionRow, error) {
	result := []models.SessionRow{}
	for rows.Next() {
		var s models.SessionRow
		if err := rows.Scan(&s.ID, &s.Exercise, &s.StartedAt, &s.EndedAt, &s.Reps, &s.Frames,
			&s.DetectedFrames, &s.CorrectFrames, &s.SkippedFrames); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
