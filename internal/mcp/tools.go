package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last `days` days.
func defaultTimeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end must be after start")
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// exerciseFilter resolves the optional exercise argument. Empty means all.
func exerciseFilter(req mcp.CallToolRequest) (string, error) {
	name := req.GetString("exercise", "")
	if name == "" {
		return "", nil
	}
	t, err := exercise.ParseType(name)
	if err != nil {
		return "", err
	}
	return string(t), nil
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the supported exercises with instructions, form tips, and the two phases that make up one rep."),
)

var toolGetDailyProgress = mcp.NewTool("get_daily_progress",
	mcp.WithDescription("Progress for one calendar day: exercises completed out of the routine, active minutes, session count, and reps per exercise."),
	mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD. Defaults to today.")),
	mcp.WithString("tz", mcp.Description("IANA time zone the day is taken in (e.g. 'Asia/Kolkata'). Defaults to the server's local zone.")),
)

var toolGetSessionHistory = mcp.NewTool("get_session_history",
	mcp.WithDescription("List recorded exercise sessions, newest first. Each session has reps, duration, and frame counts (detected, correct-form, skipped)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise (handsUp, handsCurl, sitAndReach)")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Fetch one recorded session by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetRepTrend = mcp.NewTool("get_rep_trend",
	mcp.WithDescription("Daily rep series per exercise with total, active days, mean reps per day, and the least-squares slope in reps per day."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 28 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Limit to one exercise (handsUp, handsCurl, sitAndReach)")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare sessions, active minutes, and reps per exercise between two time periods (e.g. this week vs last week)."),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(exercise.Catalog())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getDailyProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc := time.Local
	if tz := req.GetString("tz", ""); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return mcp.NewToolResultError("invalid tz: " + err.Error()), nil
		}
	}

	day := time.Now().In(loc)
	if ds := req.GetString("date", ""); ds != "" {
		var err error
		day, err = time.ParseInLocation("2006-01-02", ds, loc)
		if err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
	}

	p, err := h.ds.DailyProgress(ctx, day)
	if err != nil {
		h.log.Error("mcp get_daily_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(p)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 7)
	if err != nil {
		return mcp.NewToolResultError("invalid date range: " + err.Error()), nil
	}
	filter, err := exerciseFilter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rows, err := h.ds.ListSessions(ctx, start, end, filter)
	if err != nil {
		h.log.Error("mcp get_session_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid session ID"), nil
	}

	row, err := h.ds.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("session not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(row)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRepTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 28)
	if err != nil {
		return mcp.NewToolResultError("invalid date range: " + err.Error()), nil
	}
	filter, err := exerciseFilter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reps, err := h.ds.DailyReps(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_rep_trend", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(repTrends(reps, start, end, filter))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var bounds [4]time.Time
	for i, key := range []string{"period_a_start", "period_a_end", "period_b_start", "period_b_end"} {
		s, err := req.RequireString(key)
		if err != nil {
			return mcp.NewToolResultError(key + " parameter is required"), nil
		}
		bounds[i], err = parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid " + key + ": " + err.Error()), nil
		}
	}

	a, err := h.periodTotals(ctx, bounds[0], bounds[1])
	if err != nil {
		h.log.Error("mcp compare_periods", "period", "a", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	b, err := h.periodTotals(ctx, bounds[2], bounds[3])
	if err != nil {
		h.log.Error("mcp compare_periods", "period", "b", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(comparePeriods(a, b))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) periodTotals(ctx context.Context, start, end time.Time) (PeriodTotals, error) {
	rows, err := h.ds.ListSessions(ctx, start, end, "")
	if err != nil {
		return PeriodTotals{}, err
	}
	return summarizePeriod(rows, start, end), nil
}
