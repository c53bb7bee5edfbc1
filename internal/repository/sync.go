package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// tables maps document collections to their SQL tables.
var tables = map[models.Collection]string{
	models.CollectionEventTypes: "event_types",
	models.CollectionSessions:   "sessions",
}

// PostgresSyncRepository stores the per-user document collections.
type PostgresSyncRepository struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewPostgresSyncRepository(db *sql.DB) *PostgresSyncRepository {
	return &PostgresSyncRepository{DB: db, Now: time.Now}
}

// GetSettings returns the raw settings document, nil when the user has none.
func (r *PostgresSyncRepository) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	var data []byte
	err := r.DB.QueryRowContext(ctx, `SELECT data FROM settings WHERE user_id = $1`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSettings: %w", err)
	}
	return data, nil
}

// GetDocuments returns every document of a collection, tombstones included.
func (r *PostgresSyncRepository) GetDocuments(ctx context.Context, userID string, c models.Collection) ([]models.Document[json.RawMessage], error) {
	table, ok := tables[c]
	if !ok {
		return nil, fmt.Errorf("GetDocuments: unknown collection %q", c)
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT data, deleted, updated_at FROM `+table+` WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("GetDocuments: %w", err)
	}
	defer rows.Close()

	docs := []models.Document[json.RawMessage]{}
	for rows.Next() {
		var (
			d    models.Document[json.RawMessage]
			data []byte
		)
		if err := rows.Scan(&data, &d.Deleted, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		d.Data = data
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetDocuments: %w", err)
	}
	return docs, nil
}

// ApplyWrites executes writes in order inside one transaction. Consecutive
// tombstones or purges on the same collection are sent as a single statement.
// Every touched row gets the same server timestamp.
func (r *PostgresSyncRepository) ApplyWrites(ctx context.Context, userID string, writes []models.Write) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := r.Now().UTC()
	for i := 0; i < len(writes); {
		w := writes[i]
		if w.Op == models.OpSet {
			if err := applySet(ctx, tx, userID, w, now); err != nil {
				return err
			}
			i++
			continue
		}

		j := i
		ids := []string{}
		for j < len(writes) && writes[j].Op == w.Op && writes[j].Collection == w.Collection {
			ids = append(ids, writes[j].ID)
			j++
		}
		if err := applyDelete(ctx, tx, userID, w.Collection, w.Op, ids, now); err != nil {
			return err
		}
		i = j
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func applySet(ctx context.Context, tx *sql.Tx, userID string, w models.Write, now time.Time) error {
	if w.Collection == models.CollectionSettings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (user_id, data, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at
		`, userID, []byte(w.Data), now)
		if err != nil {
			return fmt.Errorf("set settings: %w", err)
		}
		return nil
	}

	table, ok := tables[w.Collection]
	if !ok {
		return fmt.Errorf("set: unknown collection %q", w.Collection)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO `+table+` (user_id, id, data, deleted, updated_at)
		VALUES ($1, $2, $3, false, $4)
		ON CONFLICT (user_id, id) DO UPDATE SET
			data = EXCLUDED.data,
			deleted = false,
			updated_at = EXCLUDED.updated_at
	`, userID, w.ID, []byte(w.Data), now)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", w.Collection, w.ID, err)
	}
	return nil
}

func applyDelete(ctx context.Context, tx *sql.Tx, userID string, c models.Collection, op models.WriteOp, ids []string, now time.Time) error {
	table, ok := tables[c]
	if !ok {
		return fmt.Errorf("%s: unknown collection %q", op, c)
	}
	var err error
	switch op {
	case models.OpTombstone:
		_, err = tx.ExecContext(ctx,
			`UPDATE `+table+` SET deleted = true, updated_at = $3 WHERE user_id = $1 AND id = ANY($2)`,
			userID, pq.Array(ids), now)
	case models.OpPurge:
		_, err = tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE user_id = $1 AND id = ANY($2)`,
			userID, pq.Array(ids))
	default:
		return fmt.Errorf("unknown op %q", op)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, c, err)
	}
	return nil
}
