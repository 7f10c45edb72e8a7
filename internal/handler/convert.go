package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/model"
	"github.com/lbre/imgbatch/internal/validate"
)

// uploadField is the multipart field name carrying the image files.
const uploadField = "images"

// Convert handles POST /api/convert. The request walks quota check,
// validation, bounded concurrent conversion, archive build and response, in
// that order. Any failure after the first file write triggers a synchronous
// sweep of everything this request created, so a failed request never leaves
// artifacts behind.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	clientKey := h.QuotaKey(r)

	// Quota first: a rejected request must cost no file processing.
	allowed, err := h.Quota.Allow(r.Context(), clientKey)
	if err != nil {
		slog.Error("quota check failed", "error", err)
		api.WriteError(w, api.Internal("quota check failed", err), h.Config.Development())
		return
	}
	if !allowed {
		h.record(clientKey, 0, "", model.StatusFailed, api.CodeQuotaExceeded, 0, 0, start)
		api.WriteError(w, api.QuotaExceeded("daily conversion limit reached, try again tomorrow"), h.Config.Development())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodySize)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.WriteError(w, api.ResourceLimit(fmt.Sprintf(
				"request body exceeds the maximum of %d bytes", h.Config.MaxBodySize)), h.Config.Development())
			return
		}
		api.WriteError(w, api.Validation("invalid multipart form: "+err.Error(), nil), h.Config.Development())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if err := validate.FileCount(len(headers), h.Config.MaxFiles); err != nil {
		h.record(clientKey, len(headers), "", model.StatusFailed, api.CodeValidation, 0, 0, start)
		api.WriteError(w, err, h.Config.Development())
		return
	}

	opts, fieldErrs := validate.Options(validate.RawOptions{
		Format:     r.FormValue("format"),
		Width:      r.FormValue("width"),
		Height:     r.FormValue("height"),
		Quality:    r.FormValue("quality"),
		KeepAspect: r.FormValue("maintainAspectRatio"),
	})
	if len(fieldErrs) > 0 {
		h.record(clientKey, len(headers), opts.Format, model.StatusFailed, api.CodeValidation, 0, 0, start)
		api.WriteError(w, api.Validation("invalid conversion options", fieldErrs), h.Config.Development())
		return
	}

	var bytesIn int64
	for _, fh := range headers {
		if fh.Size > h.Config.MaxFileSize {
			h.record(clientKey, len(headers), opts.Format, model.StatusFailed, api.CodeResourceLimit, 0, 0, start)
			api.WriteError(w, api.ResourceLimit(fmt.Sprintf(
				"file %q exceeds the maximum size of %d bytes", fh.Filename, h.Config.MaxFileSize)), h.Config.Development())
			return
		}
		bytesIn += fh.Size
	}

	// Everything created from here on lands in the sweep list.
	var (
		mu      sync.Mutex
		created []string
	)
	track := func(path string) {
		mu.Lock()
		created = append(created, path)
		mu.Unlock()
	}
	fail := func(err error, code string) {
		h.Cleaner.RemoveNow(created...)
		h.record(clientKey, len(headers), opts.Format, model.StatusFailed, code, bytesIn, 0, start)
		api.WriteError(w, err, h.Config.Development())
	}

	files := make([]model.SourceFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			fail(api.Internal("reading upload", err), api.CodeInternal)
			return
		}
		sf, err := h.Store.SaveUpload(src, fh.Filename)
		src.Close()
		if err != nil {
			fail(api.Internal("storing upload", err), api.CodeInternal)
			return
		}
		track(sf.Path)
		files = append(files, sf)
	}

	results, err := h.Converter.Convert(r.Context(), files, opts, track)
	if err != nil {
		fail(err, errCode(err))
		return
	}

	archivePath, err := h.Archiver.Build(results)
	if err != nil {
		fail(err, errCode(err))
		return
	}

	var bytesOut int64
	for _, res := range results {
		bytesOut += res.Size
	}
	h.record(clientKey, len(files), opts.Format, model.StatusOK, "", bytesIn, bytesOut, start)

	api.WriteJSON(w, http.StatusOK, api.ConvertResponse{
		Success: true,
		Message: fmt.Sprintf("converted %d file(s) to %s", len(results), opts.Format),
		ZipURL:  "/temp/" + filepath.Base(archivePath),
		Images:  results,
	})

	// Inputs and per-file outputs are no longer needed once bundled; the
	// archive itself lives until the download grace period elapses.
	h.Cleaner.RemoveNow(created...)
	h.Cleaner.Schedule(h.Config.ArchiveTTL, archivePath)
}

// record persists one history row; history failures are logged, not surfaced.
func (h *Handler) record(clientKey string, fileCount int, format, status, errCode string, bytesIn, bytesOut int64, start time.Time) {
	rec := &model.ConversionRecord{
		ID:        uuid.New().String(),
		ClientKey: clientKey,
		FileCount: fileCount,
		Format:    format,
		Status:    status,
		ErrorCode: errCode,
		BytesIn:   bytesIn,
		BytesOut:  bytesOut,
		Duration:  time.Since(start),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.DB.RecordConversion(rec); err != nil {
		slog.Error("failed to record conversion", "error", err)
	}
}

func errCode(err error) string {
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Code
	}
	return api.CodeInternal
}
