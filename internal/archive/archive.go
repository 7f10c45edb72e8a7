// Package archive bundles converted outputs into a single downloadable zip.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/model"
)

// Builder writes zip archives into dir, refusing to bundle more than
// maxTotal bytes of source content.
type Builder struct {
	dir      string
	maxTotal int64
}

// New creates a Builder writing into dir.
func New(dir string, maxTotal int64) *Builder {
	return &Builder{dir: dir, maxTotal: maxTotal}
}

// Build streams every result into one zip at maximum compression, keeping
// the order of results. The cumulative source size is checked before each
// entry; breaching the ceiling aborts the build and removes the partial
// archive, so a half-written bundle is never exposed. The archive file is
// synced to disk before its path is returned.
func (b *Builder) Build(results []model.ConversionResult) (string, error) {
	name := fmt.Sprintf("converted-%s-%s.zip",
		time.Now().UTC().Format("20060102-150405"), uuid.New().String()[:8])
	path := filepath.Join(b.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", api.Internal("creating archive", err)
	}

	// Remove the partial archive on any error path.
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(path)
		}
	}()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	var total int64
	for _, res := range results {
		fi, err := os.Stat(res.OutputPath)
		if err != nil {
			return "", api.Internal("reading converted file", err)
		}
		if total+fi.Size() > b.maxTotal {
			return "", api.ResourceLimit(fmt.Sprintf(
				"archive content exceeds the maximum of %d bytes", b.maxTotal))
		}
		total += fi.Size()

		if err := b.addEntry(zw, res); err != nil {
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", api.Internal("finalizing archive", err)
	}
	// Not done until the bytes are on disk, not merely handed to the kernel.
	if err := f.Sync(); err != nil {
		return "", api.Internal("flushing archive", err)
	}
	if err := f.Close(); err != nil {
		return "", api.Internal("closing archive", err)
	}

	ok = true
	return path, nil
}

func (b *Builder) addEntry(zw *zip.Writer, res model.ConversionResult) error {
	src, err := os.Open(res.OutputPath)
	if err != nil {
		return api.Internal("opening converted file", err)
	}
	defer src.Close()

	w, err := zw.Create(filepath.Base(res.OutputPath))
	if err != nil {
		return api.Internal("adding archive entry", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return api.Internal("writing archive entry", err)
	}
	return nil
}
