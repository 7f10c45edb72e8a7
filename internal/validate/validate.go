// Package validate normalizes raw form input into model.ConversionOptions.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/model"
)

const (
	// DefaultQuality is applied when the quality field is absent.
	DefaultQuality = 80

	minQuality = 1
	maxQuality = 100
)

// RawOptions is the untyped form input for one conversion request. Every
// field except Format may be empty.
type RawOptions struct {
	Format     string
	Width      string
	Height     string
	Quality    string
	KeepAspect string
}

// Options validates and normalizes raw into ConversionOptions. It collects
// every invalid field rather than stopping at the first, so a client can fix
// all problems in one round trip. The returned options are only meaningful
// when the error slice is empty.
//
// Options is idempotent: feeding the string form of a valid result back in
// yields the same normalized options.
func Options(raw RawOptions) (model.ConversionOptions, []api.FieldError) {
	var fieldErrs []api.FieldError
	opts := model.ConversionOptions{Quality: DefaultQuality, KeepAspect: true}

	format := strings.ToLower(strings.TrimSpace(raw.Format))
	switch {
	case format == "":
		fieldErrs = append(fieldErrs, api.FieldError{Field: "format", Message: "format is required"})
	case !model.FormatSupported(format):
		fieldErrs = append(fieldErrs, api.FieldError{
			Field:   "format",
			Message: fmt.Sprintf("unsupported format %q, expected one of %s", format, strings.Join(model.Formats, ", ")),
		})
	default:
		opts.Format = format
	}

	if raw.Width != "" {
		w, err := strconv.Atoi(strings.TrimSpace(raw.Width))
		switch {
		case err != nil:
			fieldErrs = append(fieldErrs, api.FieldError{Field: "width", Message: "width must be an integer"})
		case w <= 0:
			fieldErrs = append(fieldErrs, api.FieldError{Field: "width", Message: "width must be positive"})
		default:
			opts.Width = w
		}
	}

	if raw.Height != "" {
		h, err := strconv.Atoi(strings.TrimSpace(raw.Height))
		switch {
		case err != nil:
			fieldErrs = append(fieldErrs, api.FieldError{Field: "height", Message: "height must be an integer"})
		case h <= 0:
			fieldErrs = append(fieldErrs, api.FieldError{Field: "height", Message: "height must be positive"})
		default:
			opts.Height = h
		}
	}

	if raw.Quality != "" {
		q, err := strconv.Atoi(strings.TrimSpace(raw.Quality))
		if err != nil {
			fieldErrs = append(fieldErrs, api.FieldError{Field: "quality", Message: "quality must be an integer"})
		} else {
			// Out-of-range quality is clamped, not rejected.
			if q < minQuality {
				q = minQuality
			}
			if q > maxQuality {
				q = maxQuality
			}
			opts.Quality = q
		}
	}

	if raw.KeepAspect != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(raw.KeepAspect))
		if err != nil {
			fieldErrs = append(fieldErrs, api.FieldError{Field: "maintainAspectRatio", Message: "maintainAspectRatio must be a boolean"})
		} else {
			opts.KeepAspect = b
		}
	}

	return opts, fieldErrs
}

// FileCount enforces the per-request upload bound. Zero files and too many
// files both reject the whole request.
func FileCount(count, max int) *api.Error {
	if count == 0 {
		return api.Validation("no files uploaded", nil)
	}
	if count > max {
		return api.Validation(
			fmt.Sprintf("too many files: got %d, maximum is %d", count, max),
			[]api.FieldError{{Field: "images", Message: fmt.Sprintf("at most %d files per request", max)}},
		)
	}
	return nil
}
