// Package report renders progress charts as standalone HTML pages.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/models"
)

const dateLayout = "2006-01-02"

// ChartOptions tunes the rendered page.
type ChartOptions struct {
	// AssetsHost overrides where echarts.min.js is loaded from. Empty uses
	// the go-echarts default CDN.
	AssetsHost string
}

// Days lists the dates in [start, end) formatted as YYYY-MM-DD.
func Days(start, end time.Time) []string {
	var days []string
	y, m, d := start.Date()
	for day := time.Date(y, m, d, 0, 0, 0, 0, start.Location()); day.Before(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day.Format(dateLayout))
	}
	return days
}

// RepsChart writes a stacked bar chart of reps per day, one series per
// exercise, covering every day in [start, end) including days without
// sessions.
func RepsChart(w io.Writer, reps []models.DailyReps, start, end time.Time, o ChartOptions) error {
	days := Days(start, end)
	if len(days) == 0 {
		return fmt.Errorf("empty date range %s to %s", start.Format(dateLayout), end.Format(dateLayout))
	}

	index := make(map[string]int, len(days))
	for i, d := range days {
		index[d] = i
	}
	series := make(map[string][]int, len(exercise.Types))
	for _, t := range exercise.Types {
		series[string(t)] = make([]int, len(days))
	}
	for _, r := range reps {
		i, ok := index[r.Date]
		if !ok {
			continue
		}
		if _, ok := series[r.Exercise]; !ok {
			series[r.Exercise] = make([]int, len(days))
		}
		series[r.Exercise][i] += r.Reps
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Exercise progress",
			Width:      "100%",
			Height:     "480px",
			AssetsHost: o.AssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Reps per day",
			Subtitle: fmt.Sprintf("%s to %s", days[0], days[len(days)-1]),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reps"}),
	)
	bar.SetXAxis(days)
	for _, t := range exercise.Types {
		bar.AddSeries(exercise.Describe(t).Title, barData(series[string(t)]),
			charts.WithBarChartOpts(opts.BarChart{Stack: "reps"}))
	}

	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(bar)
	return page.Render(w)
}

func barData(values []int) []opts.BarData {
	out := make([]opts.BarData, len(values))
	for i, v := range values {
		out[i] = opts.BarData{Value: v}
	}
	return out
}
