package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shravan/physio/internal/coach"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/pose"
)

// registry holds the live sessions driven over HTTP.
type registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*coach.Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[uuid.UUID]*coach.Session)}
}

func (r *registry) add(s *coach.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *registry) get(id uuid.UUID) (*coach.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) remove(id uuid.UUID) (*coach.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	return s, ok
}

func (r *registry) drain() []*coach.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*coach.Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

// liveSession is the JSON view of a running session.
type liveSession struct {
	ID        uuid.UUID          `json:"id"`
	Exercise  exercise.Type      `json:"exercise"`
	State     coach.SessionState `json:"state"`
	Stats     coach.Stats        `json:"stats"`
	StartedBy string             `json:"started_by,omitempty"`
}

func viewSession(s *coach.Session) liveSession {
	return liveSession{
		ID:       s.ID(),
		Exercise: s.Exercise(),
		State:    s.State(),
		Stats:    s.Stats(),
	}
}

type exerciseRequest struct {
	Exercise string `json:"exercise"`
}

// frameRequest is one frame of keypoints as the browser pose model emits
// them. Unknown keypoint names are ignored.
type frameRequest struct {
	Keypoints []struct {
		Name  string  `json:"name"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Score float64 `json:"score"`
	} `json:"keypoints"`
}

func (f frameRequest) snapshot() pose.Snapshot {
	snap := pose.Snapshot{Keypoints: make([]pose.Keypoint, 0, len(f.Keypoints))}
	for _, k := range f.Keypoints {
		name, ok := pose.ParseName(k.Name)
		if !ok {
			continue
		}
		snap.Keypoints = append(snap.Keypoints, pose.Keypoint{Name: name, X: k.X, Y: k.Y, Score: k.Score})
	}
	return snap
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	typ, err := exercise.ParseType(req.Exercise)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sess, err := coach.NewSession(s.set, typ, s.opts.MinConfidence)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.sessions.add(sess)

	user := userInfoFromContext(r)
	s.log.Info("session started", "session", sess.ID(), "exercise", typ, "user", user.Login)

	view := viewSession(sess)
	view.StartedBy = user.Login
	writeJSON(w, http.StatusCreated, view)
}

// liveSessionFromURL resolves {id}, writing the error response on failure.
func (s *Server) liveSessionFromURL(w http.ResponseWriter, r *http.Request) (*coach.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return nil, false
	}
	sess, ok := s.sessions.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetLiveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.liveSessionFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewSession(sess))
}

func (s *Server) handlePushFrame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.liveSessionFromURL(w, r)
	if !ok {
		return
	}
	gen := sess.Generation()

	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	res, applied := sess.Apply(gen, req.snapshot())
	if !applied {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session was reset while the frame was in flight"})
		return
	}
	if res.RepCompleted {
		s.log.Debug("rep completed", "session", sess.ID(), "exercise", res.Exercise, "reps", res.RepCount)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSwitchExercise(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.liveSessionFromURL(w, r)
	if !ok {
		return
	}
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	typ, err := exercise.ParseType(req.Exercise)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// The finished segment is saved before the switch so a failed save
	// leaves it live for a retry.
	if err := s.saveSegment(r.Context(), sess.Summary()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	row, err := sess.SwitchExercise(typ)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("exercise switched", "session", sess.ID(), "from", row.Exercise, "to", typ)
	writeJSON(w, http.StatusOK, viewSession(sess))
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}
	sess, ok := s.sessions.remove(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	row := sess.Summary()
	if err := s.saveSegment(r.Context(), row); err != nil {
		// Keep the session so the client can stop it again.
		s.sessions.add(sess)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	sess.Reset()
	s.log.Info("session stopped", "session", id, "exercise", row.Exercise, "reps", row.Reps, "frames", row.Frames)
	writeJSON(w, http.StatusOK, row)
}

// saveSegment persists a finished segment. Segments without frames are not
// worth a history row.
func (s *Server) saveSegment(ctx context.Context, row models.SessionRow) error {
	if row.Frames == 0 {
		return nil
	}
	if err := s.db.SaveSession(ctx, row); err != nil {
		s.log.Error("failed to save session", "session", row.ID, "error", err)
		return err
	}
	return nil
}
