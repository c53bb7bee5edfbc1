// Package tracker owns the in-memory dataset and every operation that mutates it.
//
// All mutations are serialized by the manager's mutex and persisted through the
// local store after they are applied. Persistence failures are logged and do not
// fail the operation.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/models"
	"github.com/Quaternijkon/betterfly/internal/stats"
)

// Store persists the dataset and the pending delete log.
type Store interface {
	Load() (models.Dataset, models.PendingDeletes, error)
	Save(models.Dataset, models.PendingDeletes) error
}

type Manager struct {
	mu      sync.Mutex
	syncing atomic.Bool

	store    Store
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	signedIn func() bool
	cache    *stats.Cache

	data    models.Dataset
	pending models.PendingDeletes
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDs replaces the uuid generator.
func WithIDs(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithSignedIn reports whether a remote account is active; import is refused while it returns true.
func WithSignedIn(fn func() bool) Option {
	return func(m *Manager) { m.signedIn = fn }
}

// New loads the dataset from store.
func New(store Store, log *zap.Logger, opts ...Option) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
		signedIn: func() bool { return false },
		cache:    stats.NewCache(),
	}
	for _, opt := range opts {
		opt(m)
	}

	data, pending, err := store.Load()
	if err != nil {
		return nil, err
	}
	data.Revision = 1
	m.data = data
	m.pending = pending
	return m, nil
}

// Snapshot returns a deep copy of the current dataset.
func (m *Manager) Snapshot() models.Dataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}

// Pending returns a copy of the pending delete log.
func (m *Manager) Pending() models.PendingDeletes {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.PendingDeletes{
		Sessions: append([]string(nil), m.pending.Sessions...),
		Events:   append([]string(nil), m.pending.Events...),
	}
}

// Syncing reports whether a sync or overwrite is running.
func (m *Manager) Syncing() bool {
	return m.syncing.Load()
}

// View memoizes compute for the current dataset revision.
func View[T any](m *Manager, key string, compute func(models.Dataset) T) T {
	m.mu.Lock()
	ds := m.data.Clone()
	m.mu.Unlock()
	return stats.Memo(m.cache, ds.Revision, key, func() T { return compute(ds) })
}

// commit must be called with mu held.
func (m *Manager) commit() {
	m.data.Revision++
	if err := m.store.Save(m.data, m.pending); err != nil {
		m.log.Error("failed to persist dataset", zap.Uint64("revision", m.data.Revision), zap.Error(err))
	}
}

// Settings returns the current user settings.
func (m *Manager) Settings() models.UserSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Settings
}

// UpdateSettings applies fn to a copy of the settings and stores it if valid.
func (m *Manager) UpdateSettings(fn func(*models.UserSettings)) (models.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.data.Settings
	fn(&next)
	if next.WeekStart != 0 && next.WeekStart != 1 {
		return m.data.Settings, invalid("week start must be 0 (Sunday) or 1 (Monday), got %d", next.WeekStart)
	}
	switch next.StopMode {
	case models.StopQuick, models.StopNote, models.StopInteractive:
	default:
		return m.data.Settings, invalid("unknown stop mode %q", next.StopMode)
	}
	m.data.Settings = next
	m.commit()
	return next, nil
}
