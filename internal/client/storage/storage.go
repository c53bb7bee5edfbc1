// Package storage persists the client dataset in a local key-value store.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// Fixed record keys.
const (
	KeySettings       = "settings"
	KeyEventTypes     = "eventTypes"
	KeySessions       = "sessions"
	KeyPendingDeletes = "pendingDeletes"
)

// DefaultFileName is the JSON store created when no path is configured.
const DefaultFileName = "betterfly.json"

// LocalStore reads and writes the four records of a dataset.
type LocalStore struct {
	kv KV
}

func New(kv KV) *LocalStore {
	return &LocalStore{kv: kv}
}

// Open picks the backend from the file extension: .db, .sqlite and .sqlite3
// use SQLite, anything else the JSON file.
func Open(path string) (*LocalStore, error) {
	var (
		kv  KV
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		kv, err = NewSQLiteKV(path)
	default:
		kv, err = NewFileKV(path)
	}
	if err != nil {
		return nil, err
	}
	return New(kv), nil
}

func (ls *LocalStore) Close() error {
	return ls.kv.Close()
}

func (ls *LocalStore) load(key string, v any) error {
	raw, ok, err := ls.kv.Get(key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Load reads the dataset and the pending delete log. Missing records yield
// default settings and empty collections.
func (ls *LocalStore) Load() (models.Dataset, models.PendingDeletes, error) {
	ds := models.Dataset{
		Settings:   models.DefaultSettings(),
		EventTypes: []models.EventType{},
		Sessions:   []models.Session{},
	}
	var pending models.PendingDeletes

	if err := ls.load(KeySettings, &ds.Settings); err != nil {
		return ds, pending, err
	}
	if err := ls.load(KeyEventTypes, &ds.EventTypes); err != nil {
		return ds, pending, err
	}
	if err := ls.load(KeySessions, &ds.Sessions); err != nil {
		return ds, pending, err
	}
	if err := ls.load(KeyPendingDeletes, &pending); err != nil {
		return ds, pending, err
	}
	return ds, pending, nil
}

// Save writes all four records in one KV transaction.
func (ls *LocalStore) Save(ds models.Dataset, pending models.PendingDeletes) error {
	records := map[string]any{
		KeySettings:       ds.Settings,
		KeyEventTypes:     nonNil(ds.EventTypes),
		KeySessions:       nonNil(ds.Sessions),
		KeyPendingDeletes: models.PendingDeletes{Sessions: nonNil(pending.Sessions), Events: nonNil(pending.Events)},
	}
	entries := make(map[string][]byte, len(records))
	for k, v := range records {
		buf, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		entries[k] = buf
	}
	if err := ls.kv.PutAll(entries); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
