package tracker

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// EventPatch lists the fields to change on an event type; nil fields are kept.
// ClearGoal removes the goal and takes precedence over Goal.
type EventPatch struct {
	Name      *string
	Color     *string
	Goal      *models.Goal
	ClearGoal bool
	Tags      *[]string
}

func validateGoal(g *models.Goal) error {
	if g == nil {
		return nil
	}
	switch g.Type {
	case models.GoalPositive, models.GoalNegative:
	default:
		return invalid("unknown goal type %q", g.Type)
	}
	switch g.Metric {
	case models.MetricCount, models.MetricDuration:
	default:
		return invalid("unknown goal metric %q", g.Metric)
	}
	switch g.Period {
	case models.PeriodWeek, models.PeriodMonth:
	default:
		return invalid("unknown goal period %q", g.Period)
	}
	if g.TargetValue < 0 {
		return invalid("goal target must not be negative")
	}
	return nil
}

func (m *Manager) eventIndex(id string) int {
	return slices.IndexFunc(m.data.EventTypes, func(e models.EventType) bool { return e.ID == id })
}

// AddEventType creates an event type.
func (m *Manager) AddEventType(name, color string, goal *models.Goal, tags []string) (models.EventType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.EventType{}, invalid("name is required")
	}
	if err := validateGoal(goal); err != nil {
		return models.EventType{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if color == "" {
		color = m.data.Settings.ThemeColor
	}
	e := models.EventType{
		ID:        m.newID(),
		Name:      name,
		Color:     color,
		CreatedAt: m.now(),
		Goal:      goal,
		Tags:      tags,
	}
	m.data.EventTypes = append(m.data.EventTypes, e)
	m.commit()
	return e, nil
}

// UpdateEventType applies patch. The id and creation time never change.
func (m *Manager) UpdateEventType(id string, patch EventPatch) (models.EventType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.eventIndex(id)
	if i < 0 {
		return models.EventType{}, ErrNotFound
	}
	e := m.data.EventTypes[i]
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.EventType{}, invalid("name is required")
		}
		e.Name = name
	}
	if patch.Color != nil {
		e.Color = *patch.Color
	}
	switch {
	case patch.ClearGoal:
		e.Goal = nil
	case patch.Goal != nil:
		if err := validateGoal(patch.Goal); err != nil {
			return models.EventType{}, err
		}
		g := *patch.Goal
		e.Goal = &g
	}
	if patch.Tags != nil {
		e.Tags = slices.Clone(*patch.Tags)
	}
	m.data.EventTypes[i] = e
	m.commit()
	return e, nil
}

// ArchiveEventType hides or restores an event type.
func (m *Manager) ArchiveEventType(id string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.eventIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	if m.data.EventTypes[i].Archived == archived {
		return nil
	}
	m.data.EventTypes[i].Archived = archived
	m.commit()
	return nil
}

// DeleteEventType removes an event type and every session recorded against it.
// It requires confirmed and returns the number of sessions removed.
func (m *Manager) DeleteEventType(id string, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.eventIndex(id)
	if i < 0 {
		return 0, ErrNotFound
	}
	m.data.EventTypes = slices.Delete(m.data.EventTypes, i, i+1)
	m.pending.AddEvent(id)

	ids := make(map[string]struct{})
	for _, s := range m.data.Sessions {
		if s.EventID == id {
			ids[s.ID] = struct{}{}
		}
	}
	removed := m.removeSessions(ids)
	m.commit()
	m.log.Info("event type deleted", zap.String("event", id), zap.Int("sessions", removed))
	return removed, nil
}
