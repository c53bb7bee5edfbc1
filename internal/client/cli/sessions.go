package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Quaternijkon/betterfly/internal/client/tracker"
	"github.com/Quaternijkon/betterfly/internal/models"
)

type StartCmd struct {
	Event string `arg:"" help:"Event type id or name."`
}

func (c *StartCmd) Run(ctx *Context) error {
	e, err := resolveEvent(ctx.Manager.Snapshot(), c.Event)
	if err != nil {
		return err
	}
	s, started, err := ctx.Manager.Start(e.ID)
	if err != nil {
		return err
	}
	if !started {
		ctx.printf("%s is already running since %s\n", e.Name, s.StartTime.In(ctx.now().Location()).Format(inputLayout))
		return nil
	}
	ctx.printf("Started %s (%s)\n", e.Name, s.ID)
	return nil
}

type StopCmd struct {
	Event      string `arg:"" optional:"" help:"Event type id or name; defaults to the only running session."`
	Session    string `help:"Stop this running session id."`
	Note       string `help:"Session note."`
	Incomplete bool   `help:"Mark the session incomplete."`
	Rating     int    `help:"Rating 1-5."`
	Mode       string `help:"Override the configured stop mode (quick, note or interactive)."`
}

// running picks the session to stop. Two devices that started the same event
// offline leave several running sessions for one event after a sync; those are
// never guessed between.
func (c *StopCmd) running(ctx *Context) (models.Session, error) {
	running := ctx.Manager.RunningSessions()
	if c.Session != "" {
		for _, s := range running {
			if s.ID == c.Session {
				return s, nil
			}
		}
		return models.Session{}, fmt.Errorf("session %s is not running", c.Session)
	}
	if c.Event != "" {
		e, err := resolveEvent(ctx.Manager.Snapshot(), c.Event)
		if err != nil {
			return models.Session{}, err
		}
		var matches []models.Session
		var ids []string
		for _, s := range running {
			if s.EventID == e.ID {
				matches = append(matches, s)
				ids = append(ids, s.ID)
			}
		}
		switch len(matches) {
		case 0:
			return models.Session{}, fmt.Errorf("%s is not running", e.Name)
		case 1:
			return matches[0], nil
		default:
			return models.Session{}, fmt.Errorf("%s has %d running sessions (%s), pass --session",
				e.Name, len(matches), strings.Join(ids, ", "))
		}
	}
	switch len(running) {
	case 0:
		return models.Session{}, errors.New("nothing is running")
	case 1:
		return running[0], nil
	default:
		return models.Session{}, fmt.Errorf("%d sessions are running, name the event type", len(running))
	}
}

func (c *StopCmd) Run(ctx *Context) error {
	s, err := c.running(ctx)
	if err != nil {
		return err
	}

	mode := models.StopMode(c.Mode)
	if mode == "" {
		mode = ctx.Manager.Settings().StopMode
	}
	var d tracker.StopDetails
	switch mode {
	case models.StopQuick:
	case models.StopNote:
		d = tracker.StopDetails{Note: c.Note, Incomplete: c.Incomplete, Rating: c.Rating}
	case models.StopInteractive:
		d = PromptStopDetails(ctx.In, ctx.Out)
	default:
		return fmt.Errorf("unknown stop mode %q", mode)
	}

	ok, err := ctx.Manager.Stop(s.ID, d)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s is no longer running", s.ID)
	}
	ds := ctx.Manager.Snapshot()
	ctx.printf("Stopped %s after %s\n", eventLabel(ds, s.EventID), formatDuration(ctx.now().Sub(s.StartTime)))
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	running := ctx.Manager.RunningSessions()
	if len(running) == 0 {
		ctx.printf("Nothing is running.\n")
		return nil
	}
	ds := ctx.Manager.Snapshot()
	now := ctx.now()
	for _, s := range running {
		ctx.printf("%s running for %s (%s)\n", eventLabel(ds, s.EventID), formatDuration(now.Sub(s.StartTime)), s.ID)
	}
	return nil
}

type SessionCmd struct {
	List     SessionListCmd     `cmd:"" help:"List sessions." default:"1"`
	Add      SessionAddCmd      `cmd:"" help:"Record a past session."`
	Edit     SessionEditCmd     `cmd:"" help:"Edit a session."`
	Delete   SessionDeleteCmd   `cmd:"" help:"Delete one or more sessions."`
	Dangling SessionDanglingCmd `cmd:"" help:"List sessions whose event type no longer exists."`
}

type SessionListCmd struct {
	Event string `help:"Only sessions of this event type."`
	Limit int    `short:"n" help:"Maximum number of sessions to show." default:"20"`
}

func (c *SessionListCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	sessions := ds.Sessions
	if c.Event != "" {
		e, err := resolveEvent(ds, c.Event)
		if err != nil {
			return err
		}
		sessions = ds.SessionsFor(e.ID)
	}
	if len(sessions) == 0 {
		ctx.printf("No sessions found.\n")
		return nil
	}
	if c.Limit > 0 && len(sessions) > c.Limit {
		sessions = sessions[:c.Limit]
	}
	printSessions(ctx, ds, sessions)
	return nil
}

func printSessions(ctx *Context, ds models.Dataset, sessions []models.Session) {
	loc := ctx.now().Location()
	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEVENT\tSTART\tDURATION\tRATING\tNOTE")
	for _, s := range sessions {
		dur := "running"
		if s.Finished() {
			dur = formatDuration(s.Duration())
			if s.Incomplete {
				dur += " (incomplete)"
			}
		}
		rating := "-"
		if s.Rating > 0 {
			rating = fmt.Sprintf("%d", s.Rating)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, eventLabel(ds, s.EventID), s.StartTime.In(loc).Format(inputLayout), dur, rating, s.Note)
	}
	w.Flush()
}

type SessionAddCmd struct {
	Event      string        `arg:"" help:"Event type id or name."`
	Start      string        `required:"" help:"Start time (YYYY-MM-DD HH:MM or RFC 3339)."`
	End        string        `help:"End time; mutually exclusive with --duration." xor:"end"`
	Duration   time.Duration `help:"Session length, e.g. 45m." xor:"end"`
	Note       string        `help:"Session note."`
	Incomplete bool          `help:"Mark the session incomplete."`
	Rating     int           `help:"Rating 1-5."`
}

func (c *SessionAddCmd) Run(ctx *Context) error {
	e, err := resolveEvent(ctx.Manager.Snapshot(), c.Event)
	if err != nil {
		return err
	}
	loc := ctx.now().Location()
	start, err := parseTime(c.Start, loc)
	if err != nil {
		return err
	}
	var end time.Time
	switch {
	case c.End != "":
		if end, err = parseTime(c.End, loc); err != nil {
			return err
		}
	case c.Duration > 0:
		end = start.Add(c.Duration)
	default:
		return errors.New("either --end or --duration is required")
	}
	s, err := ctx.Manager.AddSession(e.ID, start, end, tracker.StopDetails{Note: c.Note, Incomplete: c.Incomplete, Rating: c.Rating})
	if err != nil {
		return err
	}
	ctx.printf("Recorded %s session %s (%s)\n", e.Name, s.ID, formatDuration(s.Duration()))
	return nil
}

type SessionEditCmd struct {
	ID         string  `arg:"" help:"Session id."`
	Event      *string `help:"Move the session to another event type."`
	Start      *string `help:"New start time."`
	End        *string `help:"New end time."`
	Note       *string `help:"New note."`
	Incomplete *bool   `help:"Set or clear the incomplete flag."`
	Rating     *int    `help:"New rating, 0 clears it."`
}

func (c *SessionEditCmd) Run(ctx *Context) error {
	ds := ctx.Manager.Snapshot()
	loc := ctx.now().Location()
	patch := tracker.SessionPatch{Note: c.Note, Incomplete: c.Incomplete, Rating: c.Rating}
	if c.Event != nil {
		e, err := resolveEvent(ds, *c.Event)
		if err != nil {
			return err
		}
		patch.EventID = &e.ID
	}
	if c.Start != nil {
		t, err := parseTime(*c.Start, loc)
		if err != nil {
			return err
		}
		patch.StartTime = &t
	}
	if c.End != nil {
		t, err := parseTime(*c.End, loc)
		if err != nil {
			return err
		}
		patch.EndTime = &t
	}
	s, err := ctx.Manager.EditSession(c.ID, patch)
	if errors.Is(err, tracker.ErrNotFound) {
		return fmt.Errorf("no session %q", c.ID)
	}
	if err != nil {
		return err
	}
	ctx.printf("Updated session %s\n", s.ID)
	return nil
}

type SessionDeleteCmd struct {
	IDs []string `arg:"" name:"id" help:"Session ids."`
	Yes bool     `short:"y" help:"Do not ask for confirmation when deleting several sessions."`
}

func (c *SessionDeleteCmd) Run(ctx *Context) error {
	if len(c.IDs) == 1 {
		if !ctx.Manager.DeleteSession(c.IDs[0]) {
			return fmt.Errorf("no session %q", c.IDs[0])
		}
		ctx.printf("Deleted session %s\n", c.IDs[0])
		return nil
	}
	confirmed := c.Yes || Confirm(ctx.In, ctx.Out, fmt.Sprintf("Delete %d sessions?", len(c.IDs)))
	n, err := ctx.Manager.DeleteSessions(c.IDs, confirmed)
	if err != nil {
		return err
	}
	ctx.printf("Deleted %d sessions\n", n)
	return nil
}

type SessionDanglingCmd struct{}

func (c *SessionDanglingCmd) Run(ctx *Context) error {
	dangling := ctx.Manager.DanglingSessions()
	if len(dangling) == 0 {
		ctx.printf("No dangling sessions.\n")
		return nil
	}
	printSessions(ctx, ctx.Manager.Snapshot(), dangling)
	return nil
}

type DedupeCmd struct{}

func (c *DedupeCmd) Run(ctx *Context) error {
	n := ctx.Manager.Deduplicate()
	if n == 0 {
		ctx.printf("No duplicate sessions found.\n")
		return nil
	}
	ctx.printf("Removed %d duplicate sessions. Run `betterfly overwrite` to clean up the server copy.\n", n)
	return nil
}
