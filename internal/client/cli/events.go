package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Quaternijkon/betterfly/internal/client/tracker"
	"github.com/Quaternijkon/betterfly/internal/models"
)

type EventCmd struct {
	Add     EventAddCmd     `cmd:"" help:"Add an event type."`
	List    EventListCmd    `cmd:"" help:"List event types." default:"1"`
	Edit    EventEditCmd    `cmd:"" help:"Edit an event type."`
	Archive EventArchiveCmd `cmd:"" help:"Archive or restore an event type."`
	Delete  EventDeleteCmd  `cmd:"" help:"Delete an event type and all of its sessions."`
}

// GoalFlags describe an optional goal on the command line.
type GoalFlags struct {
	GoalType   string        `name:"goal" help:"Goal type: positive or negative."`
	GoalMetric string        `name:"goal-metric" help:"Goal metric." enum:"count,duration" default:"count"`
	GoalPeriod string        `name:"goal-period" help:"Goal period." enum:"week,month" default:"week"`
	GoalCount  float64       `name:"goal-count" help:"Target count (count metric)."`
	GoalTime   time.Duration `name:"goal-time" help:"Target duration, e.g. 5h (duration metric)."`
}

func (g GoalFlags) goal() *models.Goal {
	if g.GoalType == "" {
		return nil
	}
	goal := &models.Goal{
		Type:        models.GoalType(g.GoalType),
		Metric:      models.Metric(g.GoalMetric),
		Period:      models.Period(g.GoalPeriod),
		TargetValue: g.GoalCount,
	}
	if goal.Metric == models.MetricDuration {
		goal.TargetValue = g.GoalTime.Seconds()
	}
	return goal
}

func describeGoal(g *models.Goal) string {
	if g == nil {
		return "-"
	}
	verb := "at least"
	if g.Type == models.GoalNegative {
		verb = "at most"
	}
	target := fmt.Sprintf("%g", g.TargetValue)
	if g.Metric == models.MetricDuration {
		target = formatDuration(time.Duration(g.TargetValue * float64(time.Second)))
	}
	return fmt.Sprintf("%s %s per %s", verb, target, g.Period)
}

type EventAddCmd struct {
	Name  string   `arg:"" help:"Event type name."`
	Color string   `help:"Display color (defaults to the theme color)."`
	Tags  []string `help:"Comma-separated tags."`

	GoalFlags `embed:""`
}

func (c *EventAddCmd) Run(ctx *Context) error {
	e, err := ctx.Manager.AddEventType(c.Name, c.Color, c.goal(), c.Tags)
	if err != nil {
		return err
	}
	ctx.printf("Added event type %s (%s)\n", e.Name, e.ID)
	return nil
}

type EventListCmd struct {
	Archived bool `help:"Include archived event types."`
}

func (c *EventListCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	if len(ds.EventTypes) == 0 {
		ctx.printf("No event types found.\n")
		return nil
	}
	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tGOAL\tTAGS\tSTATUS")
	for _, e := range ds.EventTypes {
		if e.Archived && !c.Archived {
			continue
		}
		status := ""
		if e.Archived {
			status = "archived"
		}
		if _, running := ctx.Manager.Running(e.ID); running {
			status = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, describeGoal(e.Goal), strings.Join(e.Tags, ","), status)
	}
	return w.Flush()
}

type EventEditCmd struct {
	Event     string   `arg:"" help:"Event type id or name."`
	Name      *string  `help:"New name."`
	Color     *string  `help:"New color."`
	Tags      []string `help:"Replace tags."`
	ClearTags bool     `help:"Remove all tags."`
	ClearGoal bool     `help:"Remove the goal."`

	GoalFlags `embed:""`
}

func (c *EventEditCmd) Run(ctx *Context) error {
	e, err := resolveEvent(ctx.Manager.Snapshot(), c.Event)
	if err != nil {
		return err
	}
	patch := tracker.EventPatch{
		Name:      c.Name,
		Color:     c.Color,
		Goal:      c.goal(),
		ClearGoal: c.ClearGoal,
	}
	switch {
	case c.ClearTags:
		patch.Tags = &[]string{}
	case len(c.Tags) > 0:
		patch.Tags = &c.Tags
	}
	updated, err := ctx.Manager.UpdateEventType(e.ID, patch)
	if err != nil {
		return err
	}
	ctx.printf("Updated event type %s\n", updated.Name)
	return nil
}

type EventArchiveCmd struct {
	Event   string `arg:"" help:"Event type id or name."`
	Restore bool   `help:"Unarchive instead."`
}

func (c *EventArchiveCmd) Run(ctx *Context) error {
	e, err := resolveEvent(ctx.Manager.Snapshot(), c.Event)
	if err != nil {
		return err
	}
	if err := ctx.Manager.ArchiveEventType(e.ID, !c.Restore); err != nil {
		return err
	}
	if c.Restore {
		ctx.printf("Restored %s\n", e.Name)
	} else {
		ctx.printf("Archived %s\n", e.Name)
	}
	return nil
}

type EventDeleteCmd struct {
	Event string `arg:"" help:"Event type id or name."`
	Yes   bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *EventDeleteCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	e, err := resolveEvent(ds, c.Event)
	if err != nil {
		return err
	}
	confirmed := c.Yes || Confirm(ctx.In, ctx.Out,
		fmt.Sprintf("Delete %s and its %d sessions?", e.Name, len(ds.SessionsFor(e.ID))))
	n, err := ctx.Manager.DeleteEventType(e.ID, confirmed)
	if err != nil {
		return err
	}
	ctx.printf("Deleted %s and %d sessions\n", e.Name, n)
	return nil
}
