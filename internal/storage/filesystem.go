package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lbre/imgbatch/internal/model"
)

// Compile-time check that FileSystem implements Store.
var _ Store = (*FileSystem)(nil)

// FileSystem implements Store on a local directory tree:
// <root>/uploads, <root>/output and <root>/archives.
type FileSystem struct {
	root string
}

// NewFileSystem creates the boundary subtrees under root and returns the
// store. Root is resolved to an absolute path so Within checks are stable.
func NewFileSystem(root string) (*FileSystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	fs := &FileSystem{root: abs}
	for _, dir := range []string{fs.UploadDir(), fs.OutputDir(), fs.ArchiveDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return fs, nil
}

// UploadDir is the subtree for incoming files.
func (fs *FileSystem) UploadDir() string { return filepath.Join(fs.root, "uploads") }

// OutputDir is the subtree for converted files.
func (fs *FileSystem) OutputDir() string { return filepath.Join(fs.root, "output") }

// ArchiveDir is the subtree for downloadable archives.
func (fs *FileSystem) ArchiveDir() string { return filepath.Join(fs.root, "archives") }

// SaveUpload streams r to a collision-free file in the upload subtree using
// write-to-temp plus rename, so a partially written upload is never visible
// under its final name.
func (fs *FileSystem) SaveUpload(r io.Reader, originalName string) (model.SourceFile, error) {
	dir := fs.UploadDir()

	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return model.SourceFile{}, fmt.Errorf("writing upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return model.SourceFile{}, fmt.Errorf("closing temp file: %w", err)
	}

	dst := filepath.Join(dir, uuid.New().String()+safeExt(originalName))
	if err := os.Rename(tmpPath, dst); err != nil {
		return model.SourceFile{}, fmt.Errorf("renaming upload to %s: %w", dst, err)
	}
	tmpPath = ""

	return model.SourceFile{Path: dst, OriginalName: originalName, Size: n}, nil
}

// Within reports whether path resolves inside the boundary root. Relative
// paths and anything escaping via ".." segments are rejected.
func (fs *FileSystem) Within(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(fs.root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// safeExt extracts a filename extension safe to reuse in a generated name.
// The original name is untrusted, so anything unusual is dropped.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
