package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRow is one finished exercise session, ready for the sessions table.
type SessionRow struct {
	ID             uuid.UUID `json:"id"`
	Exercise       string    `json:"exercise"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	Reps           int       `json:"reps"`
	Frames         int       `json:"frames"`
	DetectedFrames int       `json:"detected_frames"`
	CorrectFrames  int       `json:"correct_frames"`
	SkippedFrames  int       `json:"skipped_frames"`
}

// Duration is the wall-clock length of the session.
func (r SessionRow) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// DailyProgress summarises one calendar day of sessions.
type DailyProgress struct {
	Date               string         `json:"date"`
	ExercisesCompleted int            `json:"exercises_completed"`
	ExercisesTotal     int            `json:"exercises_total"`
	ActiveMinutes      float64        `json:"active_minutes"`
	Sessions           int            `json:"sessions"`
	RepsByExercise     map[string]int `json:"reps_by_exercise"`
}

// DailyReps is the rep total for one exercise on one day.
type DailyReps struct {
	Date     string `json:"date"`
	Exercise string `json:"exercise"`
	Reps     int    `json:"reps"`
}
