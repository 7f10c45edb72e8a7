package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lbre/imgbatch/internal/api"
)

// Download handles GET /temp/{filename} -- serves a finished archive.
// Only bare .zip filenames are served; anything carrying path separators,
// dot-dot segments or a different extension is refused regardless of whether
// it exists.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	if name == "" ||
		strings.ContainsAny(name, "/\\") ||
		strings.Contains(name, "..") ||
		!strings.HasSuffix(name, ".zip") {
		api.WriteError(w, api.PathSafety("invalid archive name"), h.Config.Development())
		return
	}

	path := filepath.Join(h.Store.ArchiveDir(), name)
	if _, err := os.Stat(path); err != nil {
		api.WriteJSON(w, http.StatusNotFound, api.ErrorEnvelope{
			Success: false,
			Error:   api.ErrorBody{Message: "archive not found or already expired"},
		})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
