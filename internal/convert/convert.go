// Package convert runs the per-file conversion pipeline: path safety,
// dimension limits, target size resolution, adaptive quality and the codec
// call, with bounded concurrency across the files of one request.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/imgcodec"
	"github.com/lbre/imgbatch/internal/model"
	"github.com/lbre/imgbatch/internal/storage"
)

// Limits bounds the work a single file may cost.
type Limits struct {
	MaxWidth        int
	MaxHeight       int
	MaxPixels       int64
	FileTimeout     time.Duration
	QualityCapBytes int64
	QualityCap      int
	Concurrency     int
}

// Converter converts the files of one request through a Codec.
type Converter struct {
	codec  imgcodec.Codec
	store  storage.Store
	limits Limits
	log    *slog.Logger
}

// New creates a Converter writing outputs into store's output subtree.
func New(codec imgcodec.Codec, store storage.Store, limits Limits) *Converter {
	if limits.Concurrency < 1 {
		limits.Concurrency = 1
	}
	return &Converter{
		codec:  codec,
		store:  store,
		limits: limits,
		log:    slog.With("component", "converter"),
	}
}

// Convert processes every file concurrently (bounded by Limits.Concurrency)
// and returns results in upload order regardless of completion order. One
// failing file fails the whole batch; the first error cancels the remaining
// conversions.
//
// track is invoked with each output path before the codec writes it, so the
// caller can sweep stragglers even when a conversion times out mid-write.
func (c *Converter) Convert(ctx context.Context, files []model.SourceFile, opts model.ConversionOptions, track func(path string)) ([]model.ConversionResult, error) {
	results := make([]model.ConversionResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limits.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			res, err := c.convertOne(gctx, f, opts, track)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Converter) convertOne(ctx context.Context, f model.SourceFile, opts model.ConversionOptions, track func(path string)) (model.ConversionResult, error) {
	if !c.store.Within(f.Path) {
		return model.ConversionResult{}, api.PathSafety(
			fmt.Sprintf("source path for %q escapes the upload boundary", f.OriginalName))
	}

	meta, err := c.codec.Probe(f.Path)
	if err != nil {
		return model.ConversionResult{}, api.Processing(
			fmt.Sprintf("cannot read image %q", f.OriginalName), err)
	}

	if meta.Width > c.limits.MaxWidth || meta.Height > c.limits.MaxHeight {
		return model.ConversionResult{}, api.ResourceLimit(fmt.Sprintf(
			"image %q is %dx%d, exceeding the maximum dimensions %dx%d",
			f.OriginalName, meta.Width, meta.Height, c.limits.MaxWidth, c.limits.MaxHeight))
	}
	if pixels := int64(meta.Width) * int64(meta.Height); pixels > c.limits.MaxPixels {
		return model.ConversionResult{}, api.ResourceLimit(fmt.Sprintf(
			"image %q has %d pixels, exceeding the maximum of %d",
			f.OriginalName, pixels, c.limits.MaxPixels))
	}

	w, h := c.resolveDimensions(meta.Width, meta.Height, opts)
	quality := c.effectiveQuality(opts.Quality, f.Size)

	name := fmt.Sprintf("%s-%dx%d-%s.%s",
		baseName(f.OriginalName), w, h, uuid.New().String()[:8], outputExt(opts.Format))
	dst := filepath.Join(c.store.OutputDir(), name)
	track(dst)

	start := time.Now()
	out, err := c.encode(ctx, f.Path, dst, imgcodec.Params{
		Format:  opts.Format,
		Width:   w,
		Height:  h,
		Quality: quality,
	})
	if err != nil {
		return model.ConversionResult{}, err
	}

	var size int64
	if fi, statErr := os.Stat(dst); statErr == nil {
		size = fi.Size()
	}

	c.log.Debug("converted file",
		"name", f.OriginalName,
		"format", opts.Format,
		"width", out.Width,
		"height", out.Height,
		"quality", quality,
		"duration", time.Since(start))

	return model.ConversionResult{
		OriginalName: f.OriginalName,
		OutputPath:   dst,
		Format:       out.Format,
		Width:        out.Width,
		Height:       out.Height,
		Size:         size,
	}, nil
}

// encode runs the codec under the per-file wall-clock budget. A deadline hit
// surfaces as a 408-class timeout, distinct from codec failures.
func (c *Converter) encode(ctx context.Context, src, dst string, p imgcodec.Params) (imgcodec.Meta, error) {
	fctx, cancel := context.WithTimeout(ctx, c.limits.FileTimeout)
	defer cancel()

	type encoded struct {
		meta imgcodec.Meta
		err  error
	}
	done := make(chan encoded, 1)
	go func() {
		m, err := c.codec.Encode(fctx, src, dst, p)
		done <- encoded{m, err}
	}()

	select {
	case <-fctx.Done():
		if errors.Is(fctx.Err(), context.DeadlineExceeded) {
			return imgcodec.Meta{}, api.Timeout(fmt.Sprintf(
				"conversion of %s did not finish within %s", filepath.Base(src), c.limits.FileTimeout))
		}
		// Another file in the batch failed first.
		return imgcodec.Meta{}, fctx.Err()
	case e := <-done:
		if e.err != nil {
			if errors.Is(e.err, context.DeadlineExceeded) {
				return imgcodec.Meta{}, api.Timeout(fmt.Sprintf(
					"conversion of %s did not finish within %s", filepath.Base(src), c.limits.FileTimeout))
			}
			if _, ok := api.AsError(e.err); ok {
				return imgcodec.Meta{}, e.err
			}
			return imgcodec.Meta{}, api.Processing("image conversion failed", e.err)
		}
		return e.meta, nil
	}
}

// resolveDimensions maps the requested dimensions onto the source image.
// With both dimensions requested under keep-aspect, the requested box is
// compared against the source ratio: a box wider-than-tall relative to the
// source derives width from height, otherwise height from width.
func (c *Converter) resolveDimensions(origW, origH int, opts model.ConversionOptions) (int, int) {
	reqW, reqH := opts.Width, opts.Height

	var w, h int
	switch {
	case reqW == 0 && reqH == 0:
		w, h = origW, origH
	case reqW > 0 && reqH == 0:
		w = reqW
		if opts.KeepAspect {
			h = roundRatio(reqW, origH, origW)
		} else {
			h = origH
		}
	case reqW == 0 && reqH > 0:
		h = reqH
		if opts.KeepAspect {
			w = roundRatio(reqH, origW, origH)
		} else {
			w = origW
		}
	default:
		if !opts.KeepAspect {
			w, h = reqW, reqH
			break
		}
		if float64(reqW)/float64(reqH) > float64(origW)/float64(origH) {
			h = reqH
			w = roundRatio(reqH, origW, origH)
		} else {
			w = reqW
			h = roundRatio(reqW, origH, origW)
		}
	}

	w = clampDim(w, c.limits.MaxWidth)
	h = clampDim(h, c.limits.MaxHeight)
	return w, h
}

// effectiveQuality caps the requested quality for oversized sources to bound
// output size and processing time.
func (c *Converter) effectiveQuality(quality int, srcSize int64) int {
	if srcSize > c.limits.QualityCapBytes && quality > c.limits.QualityCap {
		return c.limits.QualityCap
	}
	return quality
}

// roundRatio computes ref*num/den rounded to the nearest integer.
func roundRatio(ref, num, den int) int {
	v := int(math.Round(float64(ref) * float64(num) / float64(den)))
	if v < 1 {
		return 1
	}
	return v
}

func clampDim(v, max int) int {
	if v > max {
		return max
	}
	if v < 1 {
		return 1
	}
	return v
}

// baseName reduces an untrusted original filename to a safe stem for the
// generated output name.
func baseName(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "image"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}

// outputExt maps a format to its filename extension.
func outputExt(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
