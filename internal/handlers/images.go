package handlers

import (
	"net/http"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// handleImage serves the record's resolved-image state, running the first
// resolution pass on demand. DELETE discards the state when the record
// leaves the visible set.
func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request, record *models.CatalogRecord) {
	switch r.Method {
	case http.MethodGet:
		state := h.tracker.Current(r.Context(), record)
		h.writeJSON(w, state)
	case http.MethodDelete:
		h.tracker.Evict(record.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleImageFailure receives the display layer's render-failure signal and
// responds with the post-retry state.
func (h *Handler) handleImageFailure(w http.ResponseWriter, r *http.Request, record *models.CatalogRecord) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state := h.tracker.RenderFailed(r.Context(), record)
	h.writeJSON(w, state)
}
