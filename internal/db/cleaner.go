package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// TombstoneTables lists the collections whose deleted rows expire.
var TombstoneTables = []string{"event_types", "sessions"}

// PurgeTombstones hard-deletes tombstones last updated before cutoff and
// returns the number of removed rows. Tables outside TombstoneTables are ignored.
func PurgeTombstones(ctx context.Context, db *sql.DB, tables []string, cutoff time.Time) (int64, error) {
	var removed int64
	for _, table := range tables {
		var query string
		switch table {
		case "event_types":
			query = `DELETE FROM event_types WHERE deleted = true AND updated_at < $1`
		case "sessions":
			query = `DELETE FROM sessions WHERE deleted = true AND updated_at < $1`
		default:
			continue
		}
		res, err := db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return removed, err
		}
		if rows, err := res.RowsAffected(); err == nil {
			removed += rows
		}
	}
	return removed, nil
}

// StartTombstoneCleaner purges expired tombstones every interval until ctx is done.
// Clients that have not synced within retention may resurrect records deleted elsewhere.
func StartTombstoneCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := PurgeTombstones(ctx, db, TombstoneTables, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean tombstones", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned tombstones", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
