package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lbre/imgbatch/internal/model"
)

// ConvertResponse is the success payload for a conversion request.
type ConvertResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	ZipURL  string                   `json:"zipUrl"`
	Images  []model.ConversionResult `json:"images"`
}

// ErrorBody is the error object inside an error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the envelope for every failed request.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// FieldError reports one invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteJSON serialises resp as JSON and writes it to w with the given HTTP
// status code.
func WriteJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps err onto the error envelope. Typed pipeline errors keep
// their status and code; anything else becomes a 500 with a generic message.
// Wrapped causes are only exposed when verbose is set.
func WriteError(w http.ResponseWriter, err error, verbose bool) {
	apiErr, ok := AsError(err)
	if !ok {
		apiErr = Internal("unexpected error", err)
	}

	body := ErrorBody{
		Message: apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	}
	if verbose && apiErr.Unwrap() != nil {
		body.Details = apiErr.Unwrap().Error()
	}

	WriteJSON(w, apiErr.Status, ErrorEnvelope{Success: false, Error: body})
}
