package stats

import (
	"time"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// GoalProgress is how far an event type is into its current goal period.
type GoalProgress struct {
	Current     float64 `json:"current"`
	TargetValue float64 `json:"targetValue"`
	// TimeProgress is the elapsed fraction of the period, in [0,1].
	TimeProgress float64   `json:"timeProgress"`
	PeriodStart  time.Time `json:"periodStart"`
	PeriodEnd    time.Time `json:"periodEnd"`
}

// GoalState is the outcome shown on a goal ring.
type GoalState string

const (
	GoalInProgress GoalState = "in_progress"
	GoalSuccess    GoalState = "success"
	GoalFail       GoalState = "fail"
)

// Ring is the rendered state of a goal: an outer value ring and an inner time ring.
type Ring struct {
	State GoalState `json:"state"`
	// Fill is the value ring in [0,1]; it decays for negative goals.
	Fill float64 `json:"fill"`
	// TimeFill is the time ring in [0,1]; it shows time remaining for negative goals.
	TimeFill float64 `json:"timeFill"`
}

// GoalPeriod returns the [start, end) bounds of the period containing now.
func GoalPeriod(period models.Period, weekStart int, now time.Time) (time.Time, time.Time) {
	if period == models.PeriodMonth {
		start := StartOfMonth(now)
		return start, start.AddDate(0, 1, 0)
	}
	start := StartOfWeek(now, weekStart)
	return start, start.AddDate(0, 0, 7)
}

// GoalStatus measures the event's goal over the current period. It returns nil
// when the event has no goal. sessions may contain other events; they are ignored.
func GoalStatus(event models.EventType, sessions []models.Session, weekStart int, now time.Time) *GoalProgress {
	if event.Goal == nil {
		return nil
	}
	goal := event.Goal
	start, end := GoalPeriod(goal.Period, weekStart, now)

	var current float64
	for _, s := range sessions {
		if s.EventID != event.ID || !s.Finished() || s.EndTime.Before(start) {
			continue
		}
		current += contribution(s, goal.Metric)
	}

	elapsed := now.Sub(start).Seconds() / end.Sub(start).Seconds()
	return &GoalProgress{
		Current:      current,
		TargetValue:  goal.TargetValue,
		TimeProgress: clamp01(elapsed),
		PeriodStart:  start,
		PeriodEnd:    end,
	}
}

// EvaluateGoal derives the ring state of a goal from its progress.
func EvaluateGoal(goal models.Goal, p GoalProgress) Ring {
	if goal.Type == models.GoalNegative {
		switch {
		case p.Current > p.TargetValue:
			return Ring{State: GoalFail}
		case p.TimeProgress >= 1:
			return Ring{State: GoalSuccess, Fill: 1, TimeFill: 1}
		}
		fill := 0.0
		if p.TargetValue > 0 {
			fill = max(0, (p.TargetValue-p.Current)/p.TargetValue)
		}
		return Ring{State: GoalInProgress, Fill: fill, TimeFill: max(0, 1-p.TimeProgress)}
	}

	switch {
	case p.Current >= p.TargetValue:
		return Ring{State: GoalSuccess, Fill: 1, TimeFill: 1}
	case p.TimeProgress >= 1:
		return Ring{State: GoalFail, Fill: min(p.Current/p.TargetValue, 1), TimeFill: 1}
	}
	return Ring{State: GoalInProgress, Fill: min(p.Current/p.TargetValue, 1), TimeFill: p.TimeProgress}
}
