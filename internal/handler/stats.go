package handler

import (
	"net/http"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/model"
)

// Stats handles GET /api/stats -- aggregate conversion history.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.DB.Stats()
	if err != nil {
		api.WriteError(w, api.Internal("failed to read stats", err), h.Config.Development())
		return
	}
	api.WriteJSON(w, http.StatusOK, struct {
		Success bool        `json:"success"`
		Stats   model.Stats `json:"stats"`
	}{Success: true, Stats: st})
}
