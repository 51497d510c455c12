package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/opensea"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/resolver"
)

// Handler composes the catalog HTTP surface: record listing, image
// resolution and marketplace display data.
type Handler struct {
	records   []models.CatalogRecord
	byID      map[string]*models.CatalogRecord
	tracker   *resolver.Tracker
	market    *opensea.Client
	staticDir string
}

// New creates a Handler over an immutable record set.
func New(records []models.CatalogRecord, tracker *resolver.Tracker, market *opensea.Client, staticDir string) *Handler {
	byID := make(map[string]*models.CatalogRecord, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}
	return &Handler{
		records:   records,
		byID:      byID,
		tracker:   tracker,
		market:    market,
		staticDir: staticDir,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Record helpers
func (h *Handler) getRecordOrError(w http.ResponseWriter, recordID string) (*models.CatalogRecord, bool) {
	record, exists := h.byID[recordID]
	if !exists {
		h.writeError(w, "Record not found", http.StatusNotFound)
		return nil, false
	}
	return record, true
}
