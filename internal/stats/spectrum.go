package stats

import (
	"slices"
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// MinutesPerDay is the number of buckets in a Spectrum.
const MinutesPerDay = 24 * 60

// Spectrum counts, per minute of local clock time, how many sessions were running.
type Spectrum struct {
	Counts [MinutesPerDay]int `json:"counts"`
	// ranked holds the non-zero counts in ascending order.
	ranked []int
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// BuildSpectrum overlays every finished or ongoing session spanning at most 24h
// onto a 1440-minute clock. Sessions crossing midnight wrap through 23:59 to 00:00.
func BuildSpectrum(sessions []models.Session, now time.Time) Spectrum {
	loc := now.Location()
	var sp Spectrum
	for _, s := range sessions {
		end := now
		if s.EndTime != nil {
			end = *s.EndTime
		}
		span := end.Sub(s.StartTime)
		if span < 0 || span > 24*time.Hour {
			continue
		}
		from, to := minuteOfDay(s.StartTime.In(loc)), minuteOfDay(end.In(loc))
		switch {
		case from == to && span >= time.Minute:
			sp.mark(0, MinutesPerDay)
		case from == to:
			sp.Counts[from]++
		case from < to:
			sp.mark(from, to)
		default:
			sp.mark(from, MinutesPerDay)
			sp.mark(0, to)
		}
	}

	for _, c := range sp.Counts {
		if c > 0 {
			sp.ranked = append(sp.ranked, c)
		}
	}
	slices.Sort(sp.ranked)
	return sp
}

func (sp *Spectrum) mark(from, to int) {
	for m := from; m < to; m++ {
		sp.Counts[m]++
	}
}

// Opacity maps the minute's count onto [0.3, 1.0] by its percentile rank among
// minutes with activity. Idle minutes return 0.
func (sp Spectrum) Opacity(minute int) float64 {
	c := sp.Counts[minute]
	if c == 0 || len(sp.ranked) == 0 {
		return 0
	}
	rank, _ := slices.BinarySearch(sp.ranked, c+1)
	return 0.3 + 0.7*float64(rank)/float64(len(sp.ranked))
}

// Peak returns the busiest minute and its count.
func (sp Spectrum) Peak() (int, int) {
	best, minute := 0, 0
	for m, c := range sp.Counts {
		if c > best {
			best, minute = c, m
		}
	}
	return minute, best
}
