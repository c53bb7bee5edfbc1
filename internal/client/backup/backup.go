// Package backup reads and writes the portable backup file.
package backup

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// File is the on-disk backup layout.
type File struct {
	Settings   models.UserSettings `json:"settings"`
	EventTypes []models.EventType  `json:"eventTypes"`
	Sessions   []models.Session    `json:"sessions"`
}

// Write encodes ds as an indented backup document.
func Write(w io.Writer, ds models.Dataset) error {
	f := File{Settings: ds.Settings, EventTypes: ds.EventTypes, Sessions: ds.Sessions}
	if f.EventTypes == nil {
		f.EventTypes = []models.EventType{}
	}
	if f.Sessions == nil {
		f.Sessions = []models.Session{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Read decodes a backup document. Settings missing from the file keep their defaults.
func Read(r io.Reader) (models.Dataset, error) {
	f := File{Settings: models.DefaultSettings()}
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return models.Dataset{}, fmt.Errorf("decode backup: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Sessions))
	for _, s := range f.Sessions {
		if s.ID == "" || s.EventID == "" {
			return models.Dataset{}, fmt.Errorf("decode backup: session without id or eventId")
		}
		if _, dup := seen[s.ID]; dup {
			return models.Dataset{}, fmt.Errorf("decode backup: duplicate session id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	for _, e := range f.EventTypes {
		if e.ID == "" {
			return models.Dataset{}, fmt.Errorf("decode backup: event type without id")
		}
	}

	ds := models.Dataset{Settings: f.Settings, EventTypes: f.EventTypes, Sessions: f.Sessions}
	if ds.EventTypes == nil {
		ds.EventTypes = []models.EventType{}
	}
	if ds.Sessions == nil {
		ds.Sessions = []models.Session{}
	}
	return ds, nil
}
