package imgcodec

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	// Register WebP decoding. AVIF decoding is registered by the avif import
	// above; BMP and TIFF come in with imaging.
	_ "golang.org/x/image/webp"
)

// Compile-time check that ImagingCodec implements Codec.
var _ Codec = (*ImagingCodec)(nil)

// ImagingCodec implements Codec on top of disintegration/imaging plus the
// gen2brain WebP/AVIF encoders.
type ImagingCodec struct{}

// New returns a ready-to-use ImagingCodec.
func New() *ImagingCodec {
	return &ImagingCodec{}
}

// Probe reads just the image header via the registered format decoders.
func (c *ImagingCodec) Probe(path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Meta{}, fmt.Errorf("reading image header: %w", err)
	}
	return Meta{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Encode decodes srcPath, resizes to p.Width x p.Height and writes dstPath in
// p.Format. A partial output file is removed on any error.
func (c *ImagingCodec) Encode(ctx context.Context, srcPath, dstPath string, p Params) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return Meta{}, fmt.Errorf("decoding %s: %w", srcPath, err)
	}

	w, h := p.Width, p.Height
	if w == 0 {
		w = img.Bounds().Dx()
	}
	if h == 0 {
		h = img.Bounds().Dy()
	}
	if w != img.Bounds().Dx() || h != img.Bounds().Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return Meta{}, fmt.Errorf("creating output: %w", err)
	}

	if err := encodeTo(out, img, p.Format, p.Quality); err != nil {
		out.Close()
		os.Remove(dstPath)
		return Meta{}, fmt.Errorf("encoding %s: %w", p.Format, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dstPath)
		return Meta{}, fmt.Errorf("closing output: %w", err)
	}

	return Meta{Width: img.Bounds().Dx(), Height: img.Bounds().Dy(), Format: p.Format}, nil
}

func encodeTo(out *os.File, img image.Image, format string, quality int) error {
	switch format {
	case "jpeg":
		return jpeg.Encode(out, img, &jpeg.Options{Quality: quality})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(out, img)
	case "webp":
		return webp.Encode(out, img, webp.Options{Quality: quality, Method: 4})
	case "avif":
		return avif.Encode(out, img, avif.Options{Quality: quality, Speed: 8})
	case "gif":
		// The GIF encoder has no quality knob; the option is validated
		// upstream and ignored here.
		return gif.Encode(out, img, nil)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
