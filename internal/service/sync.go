package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// ErrInvalidWrite is returned when a batch contains a malformed write.
var ErrInvalidWrite = errors.New("invalid write")

// SyncRepository defines the persistence operations needed by the SyncService.
type SyncRepository interface {
	GetSettings(ctx context.Context, userID string) (json.RawMessage, error)
	GetDocuments(ctx context.Context, userID string, c models.Collection) ([]models.Document[json.RawMessage], error)
	// ApplyWrites applies the batch atomically, in order.
	ApplyWrites(ctx context.Context, userID string, writes []models.Write) error
}

// SyncService serves the per-user document collections.
type SyncService struct {
	repo SyncRepository
}

func NewSyncService(repo SyncRepository) *SyncService {
	return &SyncService{repo: repo}
}

// Settings returns the settings document as a key map, empty when none is stored.
func (s *SyncService) Settings(ctx context.Context, userID string) (map[string]json.RawMessage, error) {
	raw, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

// Documents returns a collection including tombstones.
func (s *SyncService) Documents(ctx context.Context, userID string, c models.Collection) ([]models.Document[json.RawMessage], error) {
	if c != models.CollectionEventTypes && c != models.CollectionSessions {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrInvalidWrite, c)
	}
	return s.repo.GetDocuments(ctx, userID, c)
}

// Commit validates every write and applies the batch in one transaction.
func (s *SyncService) Commit(ctx context.Context, userID string, writes []models.Write) error {
	for i, w := range writes {
		if err := validateWrite(w); err != nil {
			return fmt.Errorf("%w: write %d: %v", ErrInvalidWrite, i, err)
		}
	}
	if len(writes) == 0 {
		return nil
	}
	return s.repo.ApplyWrites(ctx, userID, writes)
}

func validateWrite(w models.Write) error {
	switch w.Collection {
	case models.CollectionSettings:
		if w.Op != models.OpSet {
			return fmt.Errorf("settings only support %q", models.OpSet)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(w.Data, &obj); err != nil || obj == nil {
			return errors.New("settings data must be an object")
		}
		return nil
	case models.CollectionEventTypes, models.CollectionSessions:
	default:
		return fmt.Errorf("unknown collection %q", w.Collection)
	}

	if w.ID == "" {
		return errors.New("missing id")
	}
	switch w.Op {
	case models.OpTombstone, models.OpPurge:
		return nil
	case models.OpSet:
		var doc struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(w.Data, &doc); err != nil {
			return errors.New("data must be an object")
		}
		if doc.ID != w.ID {
			return fmt.Errorf("data id %q does not match %q", doc.ID, w.ID)
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", w.Op)
	}
}
