package stats

import (
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// Weekdays lists radar axes in Monday-first order.
var Weekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Radar is the day-of-week duration profile.
type Radar struct {
	// Totals holds summed seconds per weekday, Monday first.
	Totals [7]float64 `json:"totals"`
	// Normalized scales Totals by the largest weekday total.
	Normalized [7]float64 `json:"normalized"`
}

// WeekdayRadar sums finished session durations per weekday of their end time.
// Sessions ending in the current week (on or after the latest Monday 00:00) are
// excluded so the incomplete week does not skew the profile.
func WeekdayRadar(sessions []models.Session, now time.Time) Radar {
	cutoff := StartOfWeek(now, int(time.Monday))
	var r Radar
	for _, s := range sessions {
		if !s.Finished() || !s.EndTime.Before(cutoff) {
			continue
		}
		wd := s.EndTime.In(now.Location()).Weekday()
		r.Totals[(int(wd)+6)%7] += s.Duration().Seconds()
	}

	var peak float64
	for _, v := range r.Totals {
		peak = max(peak, v)
	}
	if peak == 0 {
		return r
	}
	for i, v := range r.Totals {
		r.Normalized[i] = v / peak
	}
	return r
}
