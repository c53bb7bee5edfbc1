// Package reconcile merges the local dataset with the remote per-user store.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// Remote is the per-user document store the local dataset is reconciled with.
type Remote interface {
	FetchSettings(ctx context.Context) (map[string]json.RawMessage, error)
	FetchEventTypes(ctx context.Context) ([]models.Document[models.EventType], error)
	FetchSessions(ctx context.Context) ([]models.Document[models.Session], error)
	// Commit applies all writes atomically.
	Commit(ctx context.Context, writes []models.Write) error
}

// Result is the outcome of a successful sync.
type Result struct {
	Dataset models.Dataset
	Writes  []models.Write
}

type Syncer struct {
	remote Remote
	log    *zap.Logger
}

func NewSyncer(remote Remote, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{remote: remote, log: log}
}

// Sync pushes pending deletions as tombstones, merges every collection with
// remote precedence and commits the resulting writes in one batch. On any error
// nothing is returned and the caller keeps its local state.
func (s *Syncer) Sync(ctx context.Context, local models.Dataset, pending models.PendingDeletes) (Result, error) {
	writes := make([]models.Write, 0, len(pending.Sessions)+len(pending.Events)+1)
	for _, id := range pending.Sessions {
		writes = append(writes, models.TombstoneWrite(models.CollectionSessions, id))
	}
	for _, id := range pending.Events {
		writes = append(writes, models.TombstoneWrite(models.CollectionEventTypes, id))
	}

	remoteSettings, err := s.remote.FetchSettings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch settings: %w", err)
	}
	settings, err := MergeSettings(local.Settings, remoteSettings)
	if err != nil {
		return Result{}, fmt.Errorf("merge settings: %w", err)
	}
	w, err := models.SetWrite(models.CollectionSettings, "", settings)
	if err != nil {
		return Result{}, err
	}
	writes = append(writes, w)

	remoteEvents, err := s.remote.FetchEventTypes(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch event types: %w", err)
	}
	events, newEvents := MergeEventTypes(local.EventTypes, remoteEvents, pending.Events)
	for _, e := range newEvents {
		w, err := models.SetWrite(models.CollectionEventTypes, e.ID, e)
		if err != nil {
			return Result{}, err
		}
		writes = append(writes, w)
	}

	remoteSessions, err := s.remote.FetchSessions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch sessions: %w", err)
	}
	sessions, newSessions := MergeSessions(local.Sessions, remoteSessions, pending.Sessions)
	for _, sess := range newSessions {
		w, err := models.SetWrite(models.CollectionSessions, sess.ID, sess)
		if err != nil {
			return Result{}, err
		}
		writes = append(writes, w)
	}

	if err := s.remote.Commit(ctx, writes); err != nil {
		return Result{}, fmt.Errorf("commit batch: %w", err)
	}

	s.log.Info("sync committed",
		zap.Int("writes", len(writes)),
		zap.Int("tombstones", len(pending.Sessions)+len(pending.Events)),
		zap.Int("event_types", len(events)),
		zap.Int("sessions", len(sessions)),
	)

	return Result{
		Dataset: models.Dataset{
			Settings:   settings,
			EventTypes: events,
			Sessions:   sessions,
			Revision:   local.Revision,
		},
		Writes: writes,
	}, nil
}
