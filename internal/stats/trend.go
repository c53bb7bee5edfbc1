package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// Granularity is the bucket width of a trend series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity validates a user-supplied granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(s)); g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// TrendPoint is one bucket of a trend series.
type TrendPoint struct {
	Key string `json:"key"`
	// Values maps event id to the accumulated metric.
	Values map[string]float64 `json:"values"`
}

// BucketKey returns the trend bucket of t. Keys sort lexicographically in time order.
func BucketKey(t time.Time, g Granularity, weekStart int, loc *time.Location) string {
	local := t.In(loc)
	switch g {
	case GranularityWeek:
		return StartOfWeek(local, weekStart).Format(DayLayout)
	case GranularityMonth:
		return local.Format(MonthLayout)
	default:
		return local.Format(DayLayout)
	}
}

// Trend buckets finished sessions by end time and accumulates the metric per event.
func Trend(sessions []models.Session, g Granularity, metric models.Metric, weekStart int, loc *time.Location) []TrendPoint {
	buckets := make(map[string]map[string]float64)
	for _, s := range sessions {
		if !s.Finished() {
			continue
		}
		key := BucketKey(*s.EndTime, g, weekStart, loc)
		values, ok := buckets[key]
		if !ok {
			values = make(map[string]float64)
			buckets[key] = values
		}
		values[s.EventID] += contribution(s, metric)
	}

	out := make([]TrendPoint, 0, len(buckets))
	for key, values := range buckets {
		out = append(out, TrendPoint{Key: key, Values: values})
	}
	slices.SortFunc(out, func(a, b TrendPoint) int { return strings.Compare(a.Key, b.Key) })
	return out
}
