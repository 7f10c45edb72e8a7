package handler

import (
	"net/http"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/model"
)

// Limits is the operating-limit block of the formats endpoint, exposed so
// clients can pre-validate requests before uploading.
type Limits struct {
	MaxFilesPerRequest  int   `json:"maxFilesPerRequest"`
	MaxFileSizeBytes    int64 `json:"maxFileSizeBytes"`
	MaxRequestBodyBytes int64 `json:"maxRequestBodyBytes"`
	MaxWidth            int   `json:"maxWidth"`
	MaxHeight           int   `json:"maxHeight"`
	MaxPixels           int64 `json:"maxPixels"`
	MaxArchiveBytes     int64 `json:"maxArchiveBytes"`
	DailyQuota          int   `json:"dailyQuota"`
	FileTimeoutSeconds  int   `json:"fileTimeoutSeconds"`
}

// Formats handles GET /api/formats.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, struct {
		Success bool     `json:"success"`
		Formats []string `json:"formats"`
		Limits  Limits   `json:"limits"`
	}{
		Success: true,
		Formats: model.Formats,
		Limits: Limits{
			MaxFilesPerRequest:  h.Config.MaxFiles,
			MaxFileSizeBytes:    h.Config.MaxFileSize,
			MaxRequestBodyBytes: h.Config.MaxBodySize,
			MaxWidth:            h.Config.MaxWidth,
			MaxHeight:           h.Config.MaxHeight,
			MaxPixels:           h.Config.MaxPixels,
			MaxArchiveBytes:     h.Config.MaxArchiveBytes,
			DailyQuota:          h.Config.DailyQuota,
			FileTimeoutSeconds:  int(h.Config.FileTimeout.Seconds()),
		},
	})
}
