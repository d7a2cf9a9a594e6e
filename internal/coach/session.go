// Package coach runs the repetition state machine for one exercise session:
// it classifies each frame's keypoints, counts reps on the exercise's
// completion edge, and drives the per-frame loop over a frame source and an
// external pose estimator.
package coach

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/pose"
)

// SessionState is the mutable state of the rep counter.
type SessionState struct {
	RepCount  int            `json:"rep_count"`
	PoseState exercise.State `json:"pose_state,omitempty"`
	Feedback  string         `json:"feedback,omitempty"`
}

// FrameResult is everything the renderer needs for one frame.
type FrameResult struct {
	Seq          int64           `json:"seq"`
	Exercise     exercise.Type   `json:"exercise"`
	Feedback     string          `json:"feedback"`
	IsCorrect    bool            `json:"is_correct"`
	Detected     bool            `json:"detected"`
	Skipped      bool            `json:"skipped,omitempty"`
	RepCount     int             `json:"rep_count"`
	RepCompleted bool            `json:"rep_completed"`
	PoseState    exercise.State  `json:"pose_state,omitempty"`
	Keypoints    []pose.Keypoint `json:"keypoints"`
	Skeleton     []pose.Bone     `json:"skeleton"`
}

// Err reports why the frame did not produce a classification, if it did
// not.
func (r FrameResult) Err() error {
	switch {
	case r.Skipped:
		return ErrEstimation
	case !r.Detected:
		return ErrMissingKeypoints
	}
	return nil
}

// Stats counts frames over the current session segment.
type Stats struct {
	StartedAt      time.Time `json:"started_at"`
	Frames         int       `json:"frames"`
	DetectedFrames int       `json:"detected_frames"`
	CorrectFrames  int       `json:"correct_frames"`
	SkippedFrames  int       `json:"skipped_frames"`
}

// Session owns the state machine for one exercise. Frames are applied one at
// a time; Reset and SwitchExercise advance the generation so that a frame
// started before them can no longer update the state.
type Session struct {
	id  uuid.UUID
	set exercise.Set
	now func() time.Time

	mu        sync.Mutex
	cls       exercise.Classifier
	minScore  float64
	state     SessionState
	stats     Stats
	segmentID uuid.UUID
	gen       uint64
	seq       int64
}

// NewSession creates a session for typ using classifiers from set.
func NewSession(set exercise.Set, typ exercise.Type, minScore float64) (*Session, error) {
	cls, err := set.Get(typ)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:       uuid.New(),
		set:      set,
		now:      time.Now,
		cls:      cls,
		minScore: minScore,
	}
	s.startSegmentLocked()
	return s, nil
}

// ID identifies the live session.
func (s *Session) ID() uuid.UUID { return s.id }

// Exercise returns the active exercise.
func (s *Session) Exercise() exercise.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cls.Type()
}

// Generation returns the current generation. Pass it to Apply or Skip for a
// frame whose processing started now.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// State returns a copy of the counter state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a copy of the frame counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Observe applies a snapshot at the current generation.
func (s *Session) Observe(snap pose.Snapshot) FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(snap)
}

// Apply classifies snap and advances the state machine. ok is false, and the
// state untouched, if the session was reset since gen was read.
func (s *Session) Apply(gen uint64, snap pose.Snapshot) (res FrameResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return FrameResult{}, false
	}
	return s.applyLocked(snap), true
}

// Skip records a frame that could not be estimated: the last feedback is
// repeated and nothing else changes.
func (s *Session) Skip(gen uint64) (res FrameResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return FrameResult{}, false
	}
	s.seq++
	s.stats.Frames++
	s.stats.SkippedFrames++
	return FrameResult{
		Seq:       s.seq,
		Exercise:  s.cls.Type(),
		Feedback:  s.state.Feedback,
		Skipped:   true,
		RepCount:  s.state.RepCount,
		PoseState: s.state.PoseState,
	}, true
}

func (s *Session) applyLocked(snap pose.Snapshot) FrameResult {
	s.seq++
	s.stats.Frames++

	form := s.cls.CheckForm(snap)
	tr := s.cls.NextState(snap, s.state.PoseState)

	s.state.Feedback = form.Feedback
	if form.Detected {
		s.stats.DetectedFrames++
	}
	if form.Correct {
		s.stats.CorrectFrames++
	}
	// Missing joints leave the counter and label untouched.
	if tr.Detected {
		s.state.PoseState = tr.State
		if tr.RepCompleted {
			s.state.RepCount++
		}
	}

	return FrameResult{
		Seq:          s.seq,
		Exercise:     s.cls.Type(),
		Feedback:     form.Feedback,
		IsCorrect:    form.Correct,
		Detected:     form.Detected,
		RepCount:     s.state.RepCount,
		RepCompleted: tr.Detected && tr.RepCompleted,
		PoseState:    s.state.PoseState,
		Keypoints:    snap.Confident(s.minScore),
		Skeleton:     snap.Skeleton(s.minScore),
	}
}

// Reset ends the current segment and starts a fresh count: RepCount 0,
// pose state unset. It returns the summary of the segment that ended.
func (s *Session) Reset() models.SessionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

// SwitchExercise changes the exercise. Like Reset it starts a fresh count
// and returns the summary of the previous segment.
func (s *Session) SwitchExercise(typ exercise.Type) (models.SessionRow, error) {
	cls, err := s.set.Get(typ)
	if err != nil {
		return models.SessionRow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.resetLocked()
	s.cls = cls
	return row, nil
}

// Summary describes the current segment without ending it.
func (s *Session) Summary() models.SessionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() models.SessionRow {
	return models.SessionRow{
		ID:             s.segmentID,
		Exercise:       string(s.cls.Type()),
		StartedAt:      s.stats.StartedAt,
		EndedAt:        s.now(),
		Reps:           s.state.RepCount,
		Frames:         s.stats.Frames,
		DetectedFrames: s.stats.DetectedFrames,
		CorrectFrames:  s.stats.CorrectFrames,
		SkippedFrames:  s.stats.SkippedFrames,
	}
}

func (s *Session) resetLocked() models.SessionRow {
	row := s.summaryLocked()
	s.gen++
	s.state = SessionState{}
	s.startSegmentLocked()
	return row
}

func (s *Session) startSegmentLocked() {
	s.segmentID = uuid.New()
	s.stats = Stats{StartedAt: s.now()}
	s.seq = 0
}
