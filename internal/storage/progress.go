package storage

import (
	"math"
	"sort"
	"time"

	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/models"
)

const dateLayout = "2006-01-02"

// dayBounds returns midnight of day and of the following day in day's
// location.
func dayBounds(day time.Time) (start, end time.Time) {
	y, m, d := day.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

// summarizeDay builds the progress card for one day. An exercise counts as
// completed once any session of it scored at least one rep.
func summarizeDay(day time.Time, rows []models.SessionRow) models.DailyProgress {
	p := models.DailyProgress{
		Date:           day.Format(dateLayout),
		ExercisesTotal: len(exercise.Types),
		Sessions:       len(rows),
		RepsByExercise: make(map[string]int, len(exercise.Types)),
	}
	for _, t := range exercise.Types {
		p.RepsByExercise[string(t)] = 0
	}

	var active time.Duration
	for _, r := range rows {
		p.RepsByExercise[r.Exercise] += r.Reps
		active += r.Duration()
	}
	for _, reps := range p.RepsByExercise {
		if reps > 0 {
			p.ExercisesCompleted++
		}
	}
	p.ActiveMinutes = math.Round(active.Minutes()*10) / 10
	return p
}

// groupDailyReps totals reps per (day, exercise), ordered by day then
// exercise. Days are taken in loc.
func groupDailyReps(rows []models.SessionRow, loc *time.Location) []models.DailyReps {
	type key struct{ date, exercise string }
	totals := map[key]int{}
	for _, r := range rows {
		k := key{r.StartedAt.In(loc).Format(dateLayout), r.Exercise}
		totals[k] += r.Reps
	}

	out := make([]models.DailyReps, 0, len(totals))
	for k, reps := range totals {
		out = append(out, models.DailyReps{Date: k.date, Exercise: k.exercise, Reps: reps})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Exercise < out[j].Exercise
	})
	return out
}
