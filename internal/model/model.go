package model

import "time"

// Formats lists the output formats the codec can encode, in the order they
// are reported by the formats endpoint.
var Formats = []string{"jpeg", "png", "webp", "avif", "gif"}

// FormatSupported reports whether f is a valid output format.
func FormatSupported(f string) bool {
	for _, s := range Formats {
		if s == f {
			return true
		}
	}
	return false
}

// ConversionOptions holds the normalized conversion parameters for one
// request. Options are immutable once they come out of the validator.
type ConversionOptions struct {
	Format     string
	Width      int
	Height     int
	Quality    int
	KeepAspect bool
}

// SourceFile is one uploaded file already persisted inside the upload
// boundary. OriginalName is untrusted client input and is only ever used to
// derive output filenames, never to build paths directly.
type SourceFile struct {
	Path         string
	OriginalName string
	Size         int64
}

// ConversionResult describes one converted output file. Width and Height are
// read back from the encoded output, not echoed from the request.
type ConversionResult struct {
	OriginalName string `json:"originalName"`
	OutputPath   string `json:"-"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"-"`
}

// ConversionRecord is the persisted history row for one conversion request.
type ConversionRecord struct {
	ID        string
	ClientKey string
	FileCount int
	Format    string
	Status    string
	ErrorCode string
	BytesIn   int64
	BytesOut  int64
	Duration  time.Duration
	CreatedAt time.Time
}

// Record statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Stats aggregates the conversion history.
type Stats struct {
	Total     int   `json:"total"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	BytesIn   int64 `json:"bytesIn"`
	BytesOut  int64 `json:"bytesOut"`
}
