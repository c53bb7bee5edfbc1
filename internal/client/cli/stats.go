package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Quaternijkon/betterfly/internal/client/tracker"
	"github.com/Quaternijkon/betterfly/internal/models"
	"github.com/Quaternijkon/betterfly/internal/stats"
)

// eventStats is the per-event-type summary printed by `stats`.
type eventStats struct {
	Event   models.EventType    `json:"event"`
	Streaks stats.Streaks       `json:"streaks"`
	Goal    *stats.GoalProgress `json:"goal,omitempty"`
	Ring    *stats.Ring         `json:"ring,omitempty"`
}

func summarize(ds models.Dataset, e models.EventType, now time.Time) eventStats {
	sessions := ds.SessionsFor(e.ID)
	out := eventStats{Event: e, Streaks: stats.CalculateStreaks(sessions, now)}
	if p := stats.GoalStatus(e, sessions, ds.Settings.WeekStart, now); p != nil {
		ring := stats.EvaluateGoal(*e.Goal, *p)
		out.Goal, out.Ring = p, &ring
	}
	return out
}

type StatsCmd struct {
	Event    string `arg:"" optional:"" help:"Only this event type."`
	Archived bool   `help:"Include archived event types."`
	JSON     bool   `help:"Print JSON instead of a table."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	now := ctx.now()
	only := ""
	if c.Event != "" {
		e, err := resolveEvent(ctx.Manager.Snapshot(), c.Event)
		if err != nil {
			return err
		}
		only = e.ID
	}
	key := fmt.Sprintf("stats|%s|%t|%s", only, c.Archived, now.Truncate(time.Minute).Format(time.RFC3339))

	summaries := tracker.View(ctx.Manager, key, func(ds models.Dataset) []eventStats {
		out := []eventStats{}
		for _, e := range ds.EventTypes {
			switch {
			case only != "" && e.ID != only:
				continue
			case only == "" && e.Archived && !c.Archived:
				continue
			}
			out = append(out, summarize(ds, e, now))
		}
		return out
	})

	if c.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	if len(summaries) == 0 {
		ctx.printf("No event types found.\n")
		return nil
	}

	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tCOUNT\tTOTAL\tSTREAK\tBEST\tGAP\tMAX GAP\tGOAL")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			s.Event.Name,
			s.Streaks.TotalCount,
			formatDuration(time.Duration(s.Streaks.TotalDuration*float64(time.Second))),
			s.Streaks.CurrentStreak, s.Streaks.MaxStreak,
			s.Streaks.CurrentGap, s.Streaks.MaxGap,
			describeProgress(s),
		)
	}
	return w.Flush()
}

func describeProgress(s eventStats) string {
	if s.Goal == nil {
		return "-"
	}
	current := fmt.Sprintf("%g/%g", s.Goal.Current, s.Goal.TargetValue)
	if s.Event.Goal.Metric == models.MetricDuration {
		current = fmt.Sprintf("%s/%s",
			formatDuration(time.Duration(s.Goal.Current*float64(time.Second))),
			formatDuration(time.Duration(s.Goal.TargetValue*float64(time.Second))))
	}
	return fmt.Sprintf("%s %s (%.0f%% of %s elapsed)", current, s.Ring.State, s.Goal.TimeProgress*100, s.Event.Goal.Period)
}

// metricValue formats a count or a number of seconds.
func metricValue(metric models.Metric, v float64) string {
	if metric == models.MetricDuration {
		return formatDuration(time.Duration(v * float64(time.Second)))
	}
	return fmt.Sprintf("%g", v)
}

func selectSessions(ds models.Dataset, refs []string) ([]models.Session, []models.EventType, error) {
	if len(refs) == 0 {
		var events []models.EventType
		for _, e := range ds.EventTypes {
			if !e.Archived {
				events = append(events, e)
			}
		}
		return ds.Sessions, events, nil
	}
	var ids []string
	var events []models.EventType
	for _, ref := range refs {
		e, err := resolveEvent(ds, ref)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, e.ID)
		events = append(events, e)
	}
	return ds.SessionsFor(ids...), events, nil
}

type TrendCmd struct {
	Granularity string   `short:"g" help:"Bucket size." enum:"day,week,month" default:"week"`
	Metric      string   `short:"m" help:"What to sum." enum:"count,duration" default:"count"`
	Event       []string `help:"Limit to these event types."`
	Last        int      `help:"Only the most recent buckets." default:"12"`
}

func (c *TrendCmd) Run(ctx *Context) error {
	g, err := stats.ParseGranularity(c.Granularity)
	if err != nil {
		return err
	}
	ds := ctx.Manager.Snapshot()
	sessions, events, err := selectSessions(ds, c.Event)
	if err != nil {
		return err
	}
	metric := models.Metric(c.Metric)
	points := stats.Trend(sessions, g, metric, ds.Settings.WeekStart, ctx.now().Location())
	if c.Last > 0 && len(points) > c.Last {
		points = points[len(points)-c.Last:]
	}
	if len(points) == 0 {
		ctx.printf("No finished sessions.\n")
		return nil
	}

	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', tabwriter.AlignRight)
	header := []string{strings.ToUpper(string(g))}
	for _, e := range events {
		header = append(header, e.Name)
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")
	for _, p := range points {
		row := []string{p.Key}
		for _, e := range events {
			row = append(row, metricValue(metric, p.Values[e.ID]))
		}
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t")
	}
	return w.Flush()
}

var shades = []string{"·", "░", "▒", "▓", "█"}

func shadeRune(s stats.Shade) string {
	switch {
	case s.Neutral:
		return shades[0]
	case s.Opacity <= 0.4:
		return shades[1]
	case s.Opacity <= 0.6:
		return shades[2]
	case s.Opacity <= 0.8:
		return shades[3]
	default:
		return shades[4]
	}
}

type HeatmapCmd struct {
	Metric string   `short:"m" help:"What to sum." enum:"count,duration" default:"count"`
	Weeks  int      `help:"Number of weeks to show." default:"12"`
	Event  []string `help:"Limit to these event types."`
}

func (c *HeatmapCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	sessions, _, err := selectSessions(ds, c.Event)
	if err != nil {
		return err
	}
	now := ctx.now()
	loc := now.Location()
	metric := models.Metric(c.Metric)
	days := stats.Heatmap(sessions, metric, loc)
	q := stats.Quantiles(days)

	first := stats.StartOfWeek(now, ds.Settings.WeekStart).AddDate(0, 0, -7*(c.Weeks-1))
	for row := 0; row < 7; row++ {
		day := first.AddDate(0, 0, row)
		ctx.printf("%s ", day.Weekday().String()[:3])
		for col := 0; col < c.Weeks; col++ {
			d := day.AddDate(0, 0, 7*col)
			if d.After(now) {
				ctx.printf("  ")
				continue
			}
			ctx.printf("%s ", shadeRune(q.Shade(days[stats.DayKey(d, loc)])))
		}
		ctx.printf("\n")
	}
	ctx.printf("quartiles: %s / %s / %s\n", metricValue(metric, q.Q1), metricValue(metric, q.Q2), metricValue(metric, q.Q3))
	return nil
}

func bar(fraction float64, width int) string {
	n := int(math.Round(fraction * float64(width)))
	return strings.Repeat("█", n) + strings.Repeat(" ", width-n)
}

type RadarCmd struct {
	Event []string `help:"Limit to these event types."`
}

func (c *RadarCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	sessions, _, err := selectSessions(ds, c.Event)
	if err != nil {
		return err
	}
	r := stats.WeekdayRadar(sessions, ctx.now())
	for i, wd := range stats.Weekdays {
		ctx.printf("%s |%s| %s\n", wd.String()[:3], bar(r.Normalized[i], 30),
			formatDuration(time.Duration(r.Totals[i]*float64(time.Second))))
	}
	return nil
}

type SpectrumCmd struct {
	Event []string `help:"Limit to these event types."`
}

func (c *SpectrumCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	sessions, _, err := selectSessions(ds, c.Event)
	if err != nil {
		return err
	}
	sp := stats.BuildSpectrum(sessions, ctx.now())
	// one row per hour, one cell per 5 minutes, shaded by the busiest minute
	for h := 0; h < 24; h++ {
		cells := make([]string, 0, 12)
		for block := 0; block < 12; block++ {
			from := h*60 + block*5
			opacity := slices.Max([]float64{
				sp.Opacity(from), sp.Opacity(from + 1), sp.Opacity(from + 2), sp.Opacity(from + 3), sp.Opacity(from + 4),
			})
			cells = append(cells, shadeRune(stats.Shade{Opacity: opacity, Neutral: opacity == 0}))
		}
		ctx.printf("%02d:00 %s\n", h, strings.Join(cells, ""))
	}
	if minute, count := sp.Peak(); count > 0 {
		ctx.printf("peak: %02d:%02d (%d sessions)\n", minute/60, minute%60, count)
	}
	return nil
}
