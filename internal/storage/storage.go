package storage

import (
	"io"

	"github.com/lbre/imgbatch/internal/model"
)

// Store is the temp-file boundary for one service instance. Every path the
// conversion pipeline reads, writes or deletes must resolve inside it.
type Store interface {
	// SaveUpload streams one uploaded file into the upload subtree and
	// returns its SourceFile descriptor.
	SaveUpload(r io.Reader, originalName string) (model.SourceFile, error)

	// Within reports whether path resolves inside the boundary.
	Within(path string) bool

	// UploadDir, OutputDir and ArchiveDir are the boundary subtrees.
	UploadDir() string
	OutputDir() string
	ArchiveDir() string
}
