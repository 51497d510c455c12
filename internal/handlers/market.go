package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/opensea"
)

// handlePrice serves the detail view's price lookup. Records without
// marketplace identifiers skip the lookup and report NotListed.
func (h *Handler) handlePrice(w http.ResponseWriter, r *http.Request, record *models.CatalogRecord) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !record.MarketAddressable() {
		h.writeJSON(w, models.PriceResult{Kind: models.PriceNotListed})
		return
	}

	result := h.market.ListingOrFloorPrice(r.Context(),
		record.ContractAddress, record.TokenID, record.Type == models.TypeUnique)
	h.writeJSON(w, result)
}

// handleEvents serves the detail view's market history. Errors degrade to
// an empty event list rather than failing the view.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request, record *models.CatalogRecord) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !record.MarketAddressable() {
		h.writeJSON(w, []models.MarketEvent{})
		return
	}

	query := r.URL.Query()
	filters := opensea.EventFilters{
		EventType: query.Get("event_type"),
		Cursor:    query.Get("cursor"),
	}
	if limit := query.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filters.Limit = n
		}
	}

	tokenID := record.TokenID
	if query.Get("scope") == "collection" {
		tokenID = ""
	}

	events, err := h.market.Events(r.Context(), record.ContractAddress, tokenID, filters)
	if err != nil {
		slog.Warn("Event lookup failed", "title", record.Title, "error", err)
		h.writeJSON(w, []models.MarketEvent{})
		return
	}
	if events == nil {
		events = []models.MarketEvent{}
	}
	h.writeJSON(w, events)
}
