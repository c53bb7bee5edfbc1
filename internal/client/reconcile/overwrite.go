package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// MaxWritesPerBatch caps the number of writes sent in a single commit.
const MaxWritesPerBatch = 500

// PlanOverwrite lists the writes that make the remote store an exact copy of
// local: every remote record is purged, tombstones included, then every local
// event type and session and the settings are uploaded.
func PlanOverwrite(
	remoteEvents []models.Document[models.EventType],
	remoteSessions []models.Document[models.Session],
	local models.Dataset,
) ([]models.Write, error) {
	writes := make([]models.Write, 0, len(remoteEvents)+len(remoteSessions)+len(local.EventTypes)+len(local.Sessions)+1)
	for _, d := range remoteEvents {
		writes = append(writes, models.PurgeWrite(models.CollectionEventTypes, d.Data.ID))
	}
	for _, d := range remoteSessions {
		writes = append(writes, models.PurgeWrite(models.CollectionSessions, d.Data.ID))
	}
	for _, e := range local.EventTypes {
		w, err := models.SetWrite(models.CollectionEventTypes, e.ID, e)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	for _, s := range local.Sessions {
		w, err := models.SetWrite(models.CollectionSessions, s.ID, s)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	w, err := models.SetWrite(models.CollectionSettings, "", local.Settings)
	if err != nil {
		return nil, err
	}
	return append(writes, w), nil
}

// Chunk splits writes into consecutive batches of at most size elements.
func Chunk(writes []models.Write, size int) [][]models.Write {
	if size <= 0 {
		size = MaxWritesPerBatch
	}
	var out [][]models.Write
	for start := 0; start < len(writes); start += size {
		end := min(start+size, len(writes))
		out = append(out, writes[start:end])
	}
	return out
}

// Overwrite replaces the remote data with the local dataset and returns the
// number of writes committed. Batches are committed in order; a failure stops
// the run and leaves the earlier batches applied.
func (s *Syncer) Overwrite(ctx context.Context, local models.Dataset) (int, error) {
	remoteEvents, err := s.remote.FetchEventTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch event types: %w", err)
	}
	remoteSessions, err := s.remote.FetchSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch sessions: %w", err)
	}

	writes, err := PlanOverwrite(remoteEvents, remoteSessions, local)
	if err != nil {
		return 0, fmt.Errorf("plan overwrite: %w", err)
	}

	chunks := Chunk(writes, MaxWritesPerBatch)
	committed := 0
	for i, batch := range chunks {
		if err := s.remote.Commit(ctx, batch); err != nil {
			s.log.Error("overwrite interrupted",
				zap.Int("batch", i+1),
				zap.Int("batches", len(chunks)),
				zap.Int("committed", committed),
				zap.Error(err),
			)
			return committed, fmt.Errorf("commit batch %d/%d: %w", i+1, len(chunks), err)
		}
		committed += len(batch)
	}

	s.log.Info("overwrite committed",
		zap.Int("purged", len(remoteEvents)+len(remoteSessions)),
		zap.Int("writes", committed),
		zap.Int("batches", len(chunks)),
	)
	return committed, nil
}
