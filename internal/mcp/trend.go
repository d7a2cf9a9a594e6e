package mcp

import (
	"math"
	"time"

	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/models"
	"github.com/shravan/physio/internal/report"
	"gonum.org/v1/gonum/stat"
)

// RepTrend is the daily rep series for one exercise over a date range.
type RepTrend struct {
	Exercise   string  `json:"exercise"`
	Days       int     `json:"days"`
	TotalReps  int     `json:"total_reps"`
	ActiveDays int     `json:"active_days"`
	MeanPerDay float64 `json:"mean_per_day"`
	// SlopePerDay is the least-squares change in reps per day. Zero when
	// the range covers fewer than two days.
	SlopePerDay float64          `json:"slope_per_day"`
	Series      []DailyRepsPoint `json:"series"`
}

// DailyRepsPoint is one day of a RepTrend series.
type DailyRepsPoint struct {
	Date string `json:"date"`
	Reps int    `json:"reps"`
}

// repTrends builds one RepTrend per exercise (or only filter when set),
// zero-filling days without sessions.
func repTrends(reps []models.DailyReps, start, end time.Time, filter string) []RepTrend {
	days := report.Days(start, end)
	index := make(map[string]int, len(days))
	for i, d := range days {
		index[d] = i
	}

	var out []RepTrend
	for _, t := range exercise.Types {
		if filter != "" && string(t) != filter {
			continue
		}
		y := make([]float64, len(days))
		for _, r := range reps {
			if r.Exercise != string(t) {
				continue
			}
			if i, ok := index[r.Date]; ok {
				y[i] += float64(r.Reps)
			}
		}
		out = append(out, trendOf(string(t), days, y))
	}
	return out
}

func trendOf(name string, days []string, y []float64) RepTrend {
	tr := RepTrend{
		Exercise: name,
		Days:     len(days),
		Series:   make([]DailyRepsPoint, len(days)),
	}
	x := make([]float64, len(days))
	for i, v := range y {
		x[i] = float64(i)
		tr.Series[i] = DailyRepsPoint{Date: days[i], Reps: int(v)}
		tr.TotalReps += int(v)
		if v > 0 {
			tr.ActiveDays++
		}
	}
	if len(y) > 0 {
		tr.MeanPerDay = round2(stat.Mean(y, nil))
	}
	if len(y) > 1 {
		_, beta := stat.LinearRegression(x, y, nil, false)
		tr.SlopePerDay = round2(beta)
	}
	return tr
}

// PeriodTotals aggregates the sessions of one period.
type PeriodTotals struct {
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	Sessions       int            `json:"sessions"`
	ActiveMinutes  float64        `json:"active_minutes"`
	TotalReps      int            `json:"total_reps"`
	RepsByExercise map[string]int `json:"reps_by_exercise"`
}

// PeriodComparison is B relative to A.
type PeriodComparison struct {
	PeriodA        PeriodTotals   `json:"period_a"`
	PeriodB        PeriodTotals   `json:"period_b"`
	RepsDelta      map[string]int `json:"reps_delta"`
	TotalRepsDelta int            `json:"total_reps_delta"`
	// TotalRepsChangePct is nil when period A has no reps.
	TotalRepsChangePct *float64 `json:"total_reps_change_pct"`
}

func summarizePeriod(rows []models.SessionRow, start, end time.Time) PeriodTotals {
	p := PeriodTotals{
		Start:          start,
		End:            end,
		Sessions:       len(rows),
		RepsByExercise: make(map[string]int, len(exercise.Types)),
	}
	for _, t := range exercise.Types {
		p.RepsByExercise[string(t)] = 0
	}
	var active time.Duration
	for _, r := range rows {
		p.RepsByExercise[r.Exercise] += r.Reps
		p.TotalReps += r.Reps
		active += r.Duration()
	}
	p.ActiveMinutes = math.Round(active.Minutes()*10) / 10
	return p
}

func comparePeriods(a, b PeriodTotals) PeriodComparison {
	c := PeriodComparison{
		PeriodA:        a,
		PeriodB:        b,
		RepsDelta:      make(map[string]int, len(a.RepsByExercise)),
		TotalRepsDelta: b.TotalReps - a.TotalReps,
	}
	for name, reps := range a.RepsByExercise {
		c.RepsDelta[name] = b.RepsByExercise[name] - reps
	}
	for name, reps := range b.RepsByExercise {
		if _, ok := a.RepsByExercise[name]; !ok {
			c.RepsDelta[name] = reps
		}
	}
	if a.TotalReps > 0 {
		pct := round2(float64(c.TotalRepsDelta) / float64(a.TotalReps) * 100)
		c.TotalRepsChangePct = &pct
	}
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
