package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/middleware"
	"github.com/Quaternijkon/betterfly/internal/models"
	"github.com/Quaternijkon/betterfly/internal/service"
)

// SyncService defines the document operations required by the SyncHandler.
type SyncService interface {
	Settings(ctx context.Context, userID string) (map[string]json.RawMessage, error)
	Documents(ctx context.Context, userID string, c models.Collection) ([]models.Document[json.RawMessage], error)
	Commit(ctx context.Context, userID string, writes []models.Write) error
}

// DefaultMaxBatchBytes bounds the body of POST /api/batch.
const DefaultMaxBatchBytes int64 = 64 << 20

// SyncHandler serves the per-user collections.
type SyncHandler struct {
	SyncService SyncService
	Log         *zap.Logger
	// MaxBatchBytes overrides DefaultMaxBatchBytes when positive.
	MaxBatchBytes int64
}

// BatchRequest is the JSON payload of POST /api/batch.
type BatchRequest struct {
	Writes []models.Write `json:"writes"`
}

func (h *SyncHandler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrInvalidWrite) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger(h.Log).Error(op, zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// Settings handles GET /api/settings.
func (h *SyncHandler) Settings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	settings, err := h.SyncService.Settings(r.Context(), userID)
	if err != nil {
		h.fail(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SyncHandler) documents(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserIDFromContext(r.Context())
		docs, err := h.SyncService.Documents(r.Context(), userID, c)
		if err != nil {
			h.fail(w, "get "+string(c), err)
			return
		}
		if docs == nil {
			docs = []models.Document[json.RawMessage]{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// EventTypes handles GET /api/event-types.
func (h *SyncHandler) EventTypes(w http.ResponseWriter, r *http.Request) {
	h.documents(models.CollectionEventTypes)(w, r)
}

// Sessions handles GET /api/sessions.
func (h *SyncHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	h.documents(models.CollectionSessions)(w, r)
}

// Batch handles POST /api/batch. The writes are applied atomically; 204 on success.
func (h *SyncHandler) Batch(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBatchBytes
	if limit <= 0 {
		limit = DefaultMaxBatchBytes
	}
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("batch exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	userID := middleware.GetUserIDFromContext(r.Context())
	if err := h.SyncService.Commit(r.Context(), userID, req.Writes); err != nil {
		h.fail(w, "commit batch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
