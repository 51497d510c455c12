package handlers

import (
	"net/http"
	"strings"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/catalog"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

// HandleRecords serves GET /api/records with filtering and sorting from
// query parameters.
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()

		filter := catalog.Filter{
			Platform:     query.Get("platform"),
			Collaborator: query.Get("collaborator"),
			Search:       query.Get("search"),
		}
		if t := query.Get("type"); t != "" {
			filter.Type = models.ParseArtworkType(t)
		}

		matched := filter.Apply(h.records)

		if sortField := query.Get("sort"); sortField != "" {
			dir := catalog.Ascending
			if strings.EqualFold(query.Get("dir"), string(catalog.Descending)) {
				dir = catalog.Descending
			}
			catalog.Sort(matched, catalog.SortField(sortField), dir)
		}

		h.writeJSON(w, matched)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRecordDetail routes /api/records/{id} and its sub-resources:
//
//	GET    /api/records/{id}                record detail
//	GET    /api/records/{id}/image          resolved-image state
//	DELETE /api/records/{id}/image          evict image state (record left view)
//	POST   /api/records/{id}/image-failure  render-failure signal
//	GET    /api/records/{id}/price          listing or floor price
//	GET    /api/records/{id}/events         market event history
func (h *Handler) HandleRecordDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/records/"), "/")
	recordID, sub, _ := strings.Cut(rest, "/")

	record, ok := h.getRecordOrError(w, recordID)
	if !ok {
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.writeJSON(w, record)
	case "image":
		h.handleImage(w, r, record)
	case "image-failure":
		h.handleImageFailure(w, r, record)
	case "price":
		h.handlePrice(w, r, record)
	case "events":
		h.handleEvents(w, r, record)
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}
