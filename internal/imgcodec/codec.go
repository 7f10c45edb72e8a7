// Package imgcodec wraps the image decode/encode/resize libraries behind a
// single Codec interface so the conversion pipeline can be tested without
// touching real pixel data.
package imgcodec

import "context"

// Meta describes an image file without carrying its pixels.
type Meta struct {
	Width  int
	Height int
	Format string
}

// Params are the encode parameters for one output file. A zero Width or
// Height means "keep the source dimension".
type Params struct {
	Format  string
	Width   int
	Height  int
	Quality int
}

// Codec decodes, resizes and encodes images. Implementations must treat
// srcPath and dstPath as opaque; all path policy lives in the caller.
type Codec interface {
	// Probe reads the image header and returns its dimensions and format
	// without decoding the full image.
	Probe(path string) (Meta, error)

	// Encode reads srcPath, resizes to the given dimensions, encodes in the
	// target format and writes dstPath. It returns the metadata of the
	// encoded output.
	Encode(ctx context.Context, srcPath, dstPath string, p Params) (Meta, error)
}
