package reconcile

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// MergeSettings overlays the remote settings document on the local settings.
// Keys present remotely win; keys only present locally are kept.
func MergeSettings(local models.UserSettings, remote map[string]json.RawMessage) (models.UserSettings, error) {
	if len(remote) == 0 {
		return local, nil
	}
	raw, err := json.Marshal(local)
	if err != nil {
		return local, fmt.Errorf("encode local settings: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return local, fmt.Errorf("decode local settings: %w", err)
	}
	for k, v := range remote {
		fields[k] = v
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return local, fmt.Errorf("encode merged settings: %w", err)
	}
	var merged models.UserSettings
	if err := json.Unmarshal(raw, &merged); err != nil {
		return local, fmt.Errorf("decode merged settings: %w", err)
	}
	return merged, nil
}

// mergeDocuments applies the remote-precedence rule shared by every collection:
// tombstoned remote documents and ids in pending are dropped, surviving remote
// documents replace local records with the same id, and local records the
// server has never seen are kept and returned as created.
func mergeDocuments[T any](local []T, remote []models.Document[T], pending []string, id func(T) string) (merged, created []T) {
	tombstoned := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		tombstoned[p] = struct{}{}
	}
	for _, doc := range remote {
		if doc.Deleted {
			tombstoned[id(doc.Data)] = struct{}{}
		}
	}

	surviving := make(map[string]struct{}, len(remote))
	for _, doc := range remote {
		key := id(doc.Data)
		if _, gone := tombstoned[key]; gone {
			continue
		}
		if _, dup := surviving[key]; dup {
			continue
		}
		surviving[key] = struct{}{}
		merged = append(merged, doc.Data)
	}

	for _, rec := range local {
		key := id(rec)
		if _, ok := surviving[key]; ok {
			continue
		}
		if _, gone := tombstoned[key]; gone {
			continue
		}
		merged = append(merged, rec)
		created = append(created, rec)
	}
	return merged, created
}

// MergeEventTypes merges event types and orders them by creation time, oldest first.
func MergeEventTypes(local []models.EventType, remote []models.Document[models.EventType], pending []string) (merged, created []models.EventType) {
	merged, created = mergeDocuments(local, remote, pending, func(e models.EventType) string { return e.ID })
	slices.SortStableFunc(merged, func(a, b models.EventType) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return merged, created
}

// MergeSessions merges sessions and orders them by start time, newest first.
func MergeSessions(local []models.Session, remote []models.Document[models.Session], pending []string) (merged, created []models.Session) {
	merged, created = mergeDocuments(local, remote, pending, func(s models.Session) string { return s.ID })
	slices.SortStableFunc(merged, func(a, b models.Session) int {
		return b.StartTime.Compare(a.StartTime)
	})
	return merged, created
}
