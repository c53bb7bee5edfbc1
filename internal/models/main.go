// Package models defines the core data structures for event types, sessions and user settings.
package models

import (
	"slices"
	"time"
)

// GoalType tells whether a goal is a floor ("at least") or a ceiling ("at most").
type GoalType string

const (
	// GoalPositive means "do at least TargetValue per period".
	GoalPositive GoalType = "positive"
	// GoalNegative means "do at most TargetValue per period".
	GoalNegative GoalType = "negative"
)

// Metric selects what a goal or a statistic measures.
type Metric string

const (
	// MetricCount counts finished, complete sessions.
	MetricCount Metric = "count"
	// MetricDuration sums session durations in seconds.
	MetricDuration Metric = "duration"
)

// Period is the recurrence window of a goal.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// StopMode controls how much the client asks for when a session is stopped.
type StopMode string

const (
	// StopQuick stops immediately with an empty note.
	StopQuick StopMode = "quick"
	// StopNote accepts a note and flags before stopping.
	StopNote StopMode = "note"
	// StopInteractive prompts for the note and flags.
	StopInteractive StopMode = "interactive"
)

// Goal is an optional recurring target attached to an event type.
type Goal struct {
	// Type is positive or negative.
	Type GoalType `json:"type"`
	// Metric is count or duration.
	Metric Metric `json:"metric"`
	// Period is week or month.
	Period Period `json:"period"`
	// TargetValue is a count, or seconds when Metric is duration.
	TargetValue float64 `json:"targetValue"`
}

// EventType is a user-defined trackable activity.
type EventType struct {
	// ID is the unique, immutable identifier.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Color is a CSS-style color string.
	Color string `json:"color"`
	// Archived hides the event type from active lists.
	Archived bool `json:"archived"`
	// CreatedAt is assigned once at creation.
	CreatedAt time.Time `json:"createdAt"`
	Goal      *Goal     `json:"goal,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Session is one timed occurrence of an event type.
type Session struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
	// StartTime is when the session was started.
	StartTime time.Time `json:"startTime"`
	// EndTime is nil while the session is ongoing.
	EndTime *time.Time `json:"endTime"`
	Note    string     `json:"note,omitempty"`
	// Incomplete sessions count toward durations but not toward counts.
	Incomplete bool `json:"incomplete,omitempty"`
	// Rating is 1-5, or 0 when unrated.
	Rating int `json:"rating,omitempty"`
}

// Finished reports whether the session has an end time.
func (s Session) Finished() bool {
	return s.EndTime != nil
}

// Duration returns end minus start for finished sessions and 0 otherwise.
func (s Session) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// UserSettings is the per-installation settings singleton.
type UserSettings struct {
	ThemeColor string `json:"themeColor"`
	// WeekStart is 0 for Sunday and 1 for Monday.
	WeekStart int      `json:"weekStart"`
	StopMode  StopMode `json:"stopMode"`
	DarkMode  bool     `json:"darkMode"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() UserSettings {
	return UserSettings{
		ThemeColor: "#6C63FF",
		WeekStart:  1,
		StopMode:   StopQuick,
		DarkMode:   false,
	}
}

// PendingDeletes records ids deleted locally that the remote store has not yet seen.
type PendingDeletes struct {
	Sessions []string `json:"sessions"`
	Events   []string `json:"events"`
}

// Empty reports whether there is nothing left to push.
func (p PendingDeletes) Empty() bool {
	return len(p.Sessions) == 0 && len(p.Events) == 0
}

// AddSession records a session id, ignoring duplicates.
func (p *PendingDeletes) AddSession(id string) {
	if !slices.Contains(p.Sessions, id) {
		p.Sessions = append(p.Sessions, id)
	}
}

// AddEvent records an event type id, ignoring duplicates.
func (p *PendingDeletes) AddEvent(id string) {
	if !slices.Contains(p.Events, id) {
		p.Events = append(p.Events, id)
	}
}

// Dataset is the working copy of everything a user owns.
type Dataset struct {
	Settings   UserSettings `json:"settings"`
	EventTypes []EventType  `json:"eventTypes"`
	Sessions   []Session    `json:"sessions"`
	// Revision identifies the snapshot for memoized views. It is not persisted.
	Revision uint64 `json:"-"`
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Settings:   d.Settings,
		EventTypes: make([]EventType, len(d.EventTypes)),
		Sessions:   make([]Session, len(d.Sessions)),
		Revision:   d.Revision,
	}
	for i, e := range d.EventTypes {
		if e.Goal != nil {
			g := *e.Goal
			e.Goal = &g
		}
		e.Tags = slices.Clone(e.Tags)
		out.EventTypes[i] = e
	}
	for i, s := range d.Sessions {
		if s.EndTime != nil {
			t := *s.EndTime
			s.EndTime = &t
		}
		out.Sessions[i] = s
	}
	return out
}

// EventType looks an event type up by id.
func (d Dataset) EventType(id string) (EventType, bool) {
	for _, e := range d.EventTypes {
		if e.ID == id {
			return e, true
		}
	}
	return EventType{}, false
}

// SessionsFor returns the sessions of the given event types, preserving order.
func (d Dataset) SessionsFor(eventIDs ...string) []Session {
	var out []Session
	for _, s := range d.Sessions {
		if slices.Contains(eventIDs, s.EventID) {
			out = append(out, s)
		}
	}
	return out
}
