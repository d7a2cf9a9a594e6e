package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/report"
)

// SessionStore is the history backend the handlers need.
type SessionStore interface {
	SaveSession(ctx context.Context, row models.SessionRow) error
	ListSessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRow, error)
	DailyProgress(ctx context.Context, day time.Time) (*models.DailyProgress, error)
	DailyReps(ctx context.Context, start, end time.Time) ([]models.DailyReps, error)
}

// Options configures a Server.
type Options struct {
	APIKey string
	// MinConfidence is the keypoint score below which overlay points are
	// dropped from frame results.
	MinConfidence float64
	// Identity resolves callers; DevIdentity when nil.
	Identity func(http.Handler) http.Handler
	// Chart tunes the HTML progress chart.
	Chart report.ChartOptions
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       SessionStore
	set      exercise.Set
	sessions *registry
	log      *slog.Logger
	opts     Options
	now      func() time.Time
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db SessionStore, set exercise.Set, log *slog.Logger, opts Options) *Server {
	if opts.Identity == nil {
		opts.Identity = DevIdentity
	}
	s := &Server{
		db:       db,
		set:      set,
		sessions: newRegistry(),
		log:      log,
		opts:     opts,
		now:      time.Now,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.opts.Identity)

	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/exercises", s.handleListExercises)

	// Live sessions. Reads are open; anything that changes a session needs
	// the API key.
	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/{id}", s.handleGetLiveSession)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.opts.APIKey))
			r.Post("/", s.handleStartSession)
			r.Post("/{id}/frames", s.handlePushFrame)
			r.Put("/{id}/exercise", s.handleSwitchExercise)
			r.Delete("/{id}", s.handleStopSession)
		})
	})

	// History and progress are open; tsnet handles access.
	s.router.Get("/api/v1/history", s.handleListHistory)
	s.router.Get("/api/v1/history/{id}", s.handleGetHistory)
	s.router.Get("/api/v1/progress/today", s.handleProgressToday)
	s.router.Get("/api/v1/progress/daily", s.handleDailyReps)
	s.router.Get("/api/v1/progress/chart", s.handleProgressChart)
}

// MountDebug serves h under /debug/. h sees the full request path.
func (s *Server) MountDebug(h http.Handler) {
	s.router.Mount("/debug", h)
}

// MountMCP serves an MCP transport at /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Mount("/mcp", h)
}

// Shutdown stops every live session and saves what was recorded. Every
// session is attempted; the failed saves are returned joined.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	for _, sess := range s.sessions.drain() {
		row := sess.Reset()
		if err := s.saveSegment(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("saving session %s: %w", row.ID, err))
		}
	}
	return errors.Join(errs...)
}
