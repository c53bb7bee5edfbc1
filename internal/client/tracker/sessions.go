package tracker

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/client/reconcile"
	"github.com/Quaternijkon/betterfly/internal/models"
)

// StopDetails is what the user adds when finishing a session.
type StopDetails struct {
	Note       string
	Incomplete bool
	// Rating is 1-5, or 0 for none.
	Rating int
}

func (d StopDetails) validate() error {
	if d.Rating < 0 || d.Rating > 5 {
		return invalid("rating must be between 1 and 5, got %d", d.Rating)
	}
	return nil
}

// SessionPatch lists the fields to change on a session; nil fields are kept.
type SessionPatch struct {
	EventID    *string
	StartTime  *time.Time
	EndTime    *time.Time
	Note       *string
	Incomplete *bool
	Rating     *int
}

func (m *Manager) sessionIndex(id string) int {
	return slices.IndexFunc(m.data.Sessions, func(s models.Session) bool { return s.ID == id })
}

func (m *Manager) runningFor(eventID string) (models.Session, bool) {
	for _, s := range m.data.Sessions {
		if s.EventID == eventID && !s.Finished() {
			return s, true
		}
	}
	return models.Session{}, false
}

// Running returns the ongoing session of eventID, if any.
func (m *Manager) Running(eventID string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningFor(eventID)
}

// RunningSessions returns every ongoing session.
func (m *Manager) RunningSessions() []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.data.Sessions {
		if !s.Finished() {
			out = append(out, s)
		}
	}
	return out
}

// Start begins a session for eventID. When one is already running it is
// returned with started=false and nothing changes.
func (m *Manager) Start(eventID string) (session models.Session, started bool, err error) {
	if eventID == "" {
		return models.Session{}, false, invalid("event id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data.EventType(eventID); !ok {
		return models.Session{}, false, invalid("unknown event type %q", eventID)
	}
	if running, ok := m.runningFor(eventID); ok {
		return running, false, nil
	}

	s := models.Session{ID: m.newID(), EventID: eventID, StartTime: m.now()}
	m.data.Sessions = slices.Insert(m.data.Sessions, 0, s)
	m.commit()
	m.log.Debug("session started", zap.String("session", s.ID), zap.String("event", eventID))
	return s, true, nil
}

// Stop finishes a running session. It reports false when the id is unknown or
// the session has already ended.
func (m *Manager) Stop(sessionID string, d StopDetails) (bool, error) {
	if err := d.validate(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.sessionIndex(sessionID)
	if i < 0 || m.data.Sessions[i].Finished() {
		return false, nil
	}
	end := m.now()
	s := &m.data.Sessions[i]
	s.EndTime = &end
	s.Note = d.Note
	s.Incomplete = d.Incomplete
	s.Rating = d.Rating
	m.commit()
	m.log.Debug("session stopped", zap.String("session", sessionID), zap.Duration("duration", s.Duration()))
	return true, nil
}

// AddSession records a finished session entered by hand.
func (m *Manager) AddSession(eventID string, start, end time.Time, d StopDetails) (models.Session, error) {
	if eventID == "" {
		return models.Session{}, invalid("event id is required")
	}
	if end.Before(start) {
		return models.Session{}, invalid("end time %s is before start time %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if err := d.validate(); err != nil {
		return models.Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data.EventType(eventID); !ok {
		return models.Session{}, invalid("unknown event type %q", eventID)
	}
	s := models.Session{
		ID:         m.newID(),
		EventID:    eventID,
		StartTime:  start,
		EndTime:    &end,
		Note:       d.Note,
		Incomplete: d.Incomplete,
		Rating:     d.Rating,
	}
	i, _ := slices.BinarySearchFunc(m.data.Sessions, s, func(a, b models.Session) int {
		return b.StartTime.Compare(a.StartTime)
	})
	m.data.Sessions = slices.Insert(m.data.Sessions, i, s)
	m.commit()
	return s, nil
}

// EditSession applies patch to the session with the given id.
func (m *Manager) EditSession(id string, patch SessionPatch) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.sessionIndex(id)
	if i < 0 {
		return models.Session{}, ErrNotFound
	}
	s := m.data.Sessions[i]
	if patch.EventID != nil {
		if _, ok := m.data.EventType(*patch.EventID); !ok {
			return models.Session{}, invalid("unknown event type %q", *patch.EventID)
		}
		if !s.Finished() {
			if _, busy := m.runningFor(*patch.EventID); busy && *patch.EventID != s.EventID {
				return models.Session{}, invalid("event type %q already has a running session", *patch.EventID)
			}
		}
		s.EventID = *patch.EventID
	}
	if patch.StartTime != nil {
		s.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		end := *patch.EndTime
		s.EndTime = &end
	}
	if patch.Note != nil {
		s.Note = *patch.Note
	}
	if patch.Incomplete != nil {
		s.Incomplete = *patch.Incomplete
	}
	if patch.Rating != nil {
		s.Rating = *patch.Rating
	}
	if s.EndTime != nil && s.EndTime.Before(s.StartTime) {
		return models.Session{}, invalid("end time is before start time")
	}
	if err := (StopDetails{Rating: s.Rating}).validate(); err != nil {
		return models.Session{}, err
	}

	m.data.Sessions[i] = s
	slices.SortStableFunc(m.data.Sessions, func(a, b models.Session) int {
		return b.StartTime.Compare(a.StartTime)
	})
	m.commit()
	return s, nil
}

// removeSessions must be called with mu held. It drops the sessions and
// records them in the pending log, returning how many were found.
func (m *Manager) removeSessions(ids map[string]struct{}) int {
	before := len(m.data.Sessions)
	m.data.Sessions = slices.DeleteFunc(m.data.Sessions, func(s models.Session) bool {
		if _, ok := ids[s.ID]; ok {
			m.pending.AddSession(s.ID)
			return true
		}
		return false
	})
	return before - len(m.data.Sessions)
}

// DeleteSession removes one session and queues its tombstone.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removeSessions(map[string]struct{}{id: {}}) == 0 {
		return false
	}
	m.commit()
	return true
}

// DeleteSessions removes several sessions at once. It requires confirmed.
func (m *Manager) DeleteSessions(ids []string, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.removeSessions(set)
	if n > 0 {
		m.commit()
	}
	return n, nil
}

// Deduplicate removes sessions sharing event, start and end with an earlier one.
// Removed sessions are not queued for remote deletion; Overwrite propagates
// the cleanup to the remote store.
func (m *Manager) Deduplicate() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept, removed := reconcile.Deduplicate(m.data.Sessions)
	if removed == 0 {
		return 0
	}
	m.data.Sessions = kept
	m.commit()
	m.log.Info("duplicate sessions removed", zap.Int("removed", removed))
	return removed
}

// DanglingSessions lists sessions whose event type no longer exists.
func (m *Manager) DanglingSessions() []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	known := make(map[string]struct{}, len(m.data.EventTypes))
	for _, e := range m.data.EventTypes {
		known[e.ID] = struct{}{}
	}
	var out []models.Session
	for _, s := range m.data.Sessions {
		if _, ok := known[s.EventID]; !ok {
			out = append(out, s)
		}
	}
	return out
}
