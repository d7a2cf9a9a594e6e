package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/shravan/physio/internal/models"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

// LiteDB stores sessions in a single SQLite file. Timestamps are kept as
// unix milliseconds.
type LiteDB struct {
	db   *sql.DB
	path string
}

// OpenLite opens (or creates) the SQLite database at path and applies the
// embedded migrations.
func OpenLite(path string) (*LiteDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	l := &LiteDB{db: db, path: path}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *LiteDB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(l.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migrate driver: %w", err)
	}
	// m is not closed: closing it would close l.db as well.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *LiteDB) Close() error {
	return l.db.Close()
}

// SaveSession stores a finished session. Saving the same ID twice keeps the
// first row.
func (l *LiteDB) SaveSession(ctx context.Context, row models.SessionRow) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (`+sessionColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		row.ID.String(), row.Exercise, row.StartedAt.UnixMilli(), row.EndedAt.UnixMilli(),
		row.Reps, row.Frames, row.DetectedFrames, row.CorrectFrames, row.SkippedFrames)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// ListSessions returns sessions started in [start, end), newest first. An
// empty exercise matches all exercises.
func (l *LiteDB) ListSessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE started_at >= ? AND started_at < ? AND (? = '' OR exercise = ?)
		 ORDER BY started_at DESC`,
		start.UnixMilli(), end.UnixMilli(), exercise, exercise)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	result := []models.SessionRow{}
	for rows.Next() {
		s, err := scanLiteSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetSession returns one stored session.
func (l *LiteDB) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	s, err := scanLiteSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DailyProgress summarises the calendar day containing day, in day's
// location.
func (l *LiteDB) DailyProgress(ctx context.Context, day time.Time) (*models.DailyProgress, error) {
	start, end := dayBounds(day)
	rows, err := l.ListSessions(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	p := summarizeDay(start, rows)
	return &p, nil
}

// DailyReps returns rep totals per day and exercise for sessions started in
// [start, end).
func (l *LiteDB) DailyReps(ctx context.Context, start, end time.Time) ([]models.DailyReps, error) {
	rows, err := l.ListSessions(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	return groupDailyReps(rows, start.Location()), nil
}

func scanLiteSession(row interface{ Scan(dest ...any) error }) (models.SessionRow, error) {
	var (
		s                  models.SessionRow
		id                 string
		startedAt, endedAt int64
	)
	err := row.Scan(&id, &s.Exercise, &startedAt, &endedAt, &s.Reps, &s.Frames,
		&s.DetectedFrames, &s.CorrectFrames, &s.SkippedFrames)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("scanning session: %w", err)
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return s, fmt.Errorf("parsing session id %q: %w", id, err)
	}
	s.StartedAt = time.UnixMilli(startedAt).UTC()
	s.EndedAt = time.UnixMilli(endedAt).UTC()
	return s, nil
}

// AttachAdminRoutes mounts the tailsql console and a backup download on
// mux's /debug/ pages. tsweb only serves those pages to loopback and
// tailnet peers.
func (l *LiteDB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("creating tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(l.path), l.db, &tailsql.DBOptions{
		Label: "Session history",
	})
	debug.Handle("tailsql/", "SQL console over the session history", tsql.NewMux())
	debug.Handle("backup", "Download a copy of the session database", http.HandlerFunc(l.serveBackup))
	return nil
}

func (l *LiteDB) serveBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "physio-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("creating backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	name := fmt.Sprintf("sessions-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := l.db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("creating backup: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, backupPath)
}
