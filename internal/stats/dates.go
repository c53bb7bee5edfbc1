// Package stats derives streaks, goal progress, trends, heatmaps and time-of-day
// aggregates from session snapshots. Every function is pure: the current time
// and the local zone are parameters.
package stats

import (
	"math"
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// DayLayout is the calendar-day bucket key format.
const DayLayout = "2006-01-02"

// MonthLayout is the calendar-month bucket key format.
const MonthLayout = "2006-01"

// DayKey formats the local calendar date of t.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// dayNumber maps the local calendar date of t onto a day index that is not
// affected by DST transitions.
func dayNumber(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// StartOfDay returns local midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns 00:00 of the most recent weekStart weekday on or before t.
// weekStart is 0 for Sunday and 1 for Monday.
func StartOfWeek(t time.Time, weekStart int) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - weekStart + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns 00:00 on the first of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// contribution is what one session adds to a count or duration bucket.
func contribution(s models.Session, metric models.Metric) float64 {
	if metric == models.MetricDuration {
		return s.Duration().Seconds()
	}
	if s.Incomplete {
		return 0
	}
	return 1
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
