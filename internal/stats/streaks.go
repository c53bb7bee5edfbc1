package stats

import (
	"slices"
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// Streaks summarizes activity over a set of sessions.
type Streaks struct {
	// TotalCount counts finished sessions that are not incomplete.
	TotalCount int `json:"totalCount"`
	// TotalDuration sums all finished sessions, in seconds.
	TotalDuration float64 `json:"totalDuration"`
	CurrentStreak int     `json:"currentStreak"`
	CurrentGap    int     `json:"currentGap"`
	MaxStreak     int     `json:"maxStreak"`
	MaxGap        int     `json:"maxGap"`
}

// CalculateStreaks computes totals, streaks and gaps over the finished sessions.
// Days are the local calendar dates (in now's location) of each end time.
func CalculateStreaks(sessions []models.Session, now time.Time) Streaks {
	loc := now.Location()
	var out Streaks
	seen := make(map[int]struct{})
	for _, s := range sessions {
		if !s.Finished() {
			continue
		}
		out.TotalDuration += s.Duration().Seconds()
		if !s.Incomplete {
			out.TotalCount++
		}
		seen[dayNumber(*s.EndTime, loc)] = struct{}{}
	}
	if len(seen) == 0 {
		return out
	}

	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	slices.Sort(days)

	run := 1
	out.MaxStreak = 1
	for i := 1; i < len(days); i++ {
		delta := days[i] - days[i-1]
		if delta == 1 {
			run++
			out.MaxStreak = max(out.MaxStreak, run)
			continue
		}
		run = 1
		out.MaxGap = max(out.MaxGap, delta-1)
	}

	last := days[len(days)-1]
	sinceLast := dayNumber(now, loc) - last
	if sinceLast <= 1 {
		out.CurrentStreak = 1
		for i := len(days) - 1; i > 0 && days[i]-days[i-1] == 1; i-- {
			out.CurrentStreak++
		}
	} else {
		out.CurrentGap = sinceLast
		out.MaxGap = max(out.MaxGap, out.CurrentGap)
	}
	return out
}
