package stats

import (
	"math"
	"slices"
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// Heatmap accumulates the metric of finished sessions per local calendar day.
func Heatmap(sessions []models.Session, metric models.Metric, loc *time.Location) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range sessions {
		if !s.Finished() {
			continue
		}
		out[DayKey(*s.EndTime, loc)] += contribution(s, metric)
	}
	return out
}

// Quartiles are the 25th, 50th and 75th percentile thresholds of the non-zero values.
type Quartiles struct {
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// Shade is the rendering of one heatmap cell.
type Shade struct {
	Opacity float64 `json:"opacity"`
	// Neutral cells use the background color instead of the event color.
	Neutral bool `json:"neutral"`
}

// Quantiles computes quartiles over the non-zero values of a heatmap using the
// order statistic at index ceil(N*p)-1 of the ascending values.
func Quantiles(heatmap map[string]float64) Quartiles {
	values := make([]float64, 0, len(heatmap))
	for _, v := range heatmap {
		values = append(values, v)
	}
	return QuantilesOf(values)
}

// QuantilesOf computes quartiles over values, ignoring zeros. Each quartile is the
// order statistic sorted[ceil(N*p)-1], without interpolation: [1 2 2 3 5 8 13]
// gives 2, 3 and 8.
func QuantilesOf(values []float64) Quartiles {
	nonZero := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		return Quartiles{}
	}
	slices.Sort(nonZero)
	at := func(p float64) float64 {
		i := int(math.Ceil(float64(len(nonZero))*p)) - 1
		return nonZero[max(i, 0)]
	}
	return Quartiles{Q1: at(0.25), Q2: at(0.5), Q3: at(0.75)}
}

// Shade maps a cell value onto one of four opacity tiers.
func (q Quartiles) Shade(v float64) Shade {
	switch {
	case v <= 0:
		return Shade{Opacity: 1, Neutral: true}
	case v <= q.Q1:
		return Shade{Opacity: 0.4}
	case v <= q.Q2:
		return Shade{Opacity: 0.6}
	case v <= q.Q3:
		return Shade{Opacity: 0.8}
	}
	return Shade{Opacity: 1}
}
