package convert

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbre/imgbatch/internal/api"
	"github.com/lbre/imgbatch/internal/imgcodec"
	"github.com/lbre/imgbatch/internal/model"
	"github.com/lbre/imgbatch/internal/storage"
)

// stubCodec lets tests script Probe and Encode behavior per call.
type stubCodec struct {
	mu      sync.Mutex
	probe   func(path string) (imgcodec.Meta, error)
	encode  func(ctx context.Context, src, dst string, p imgcodec.Params) (imgcodec.Meta, error)
	encoded []imgcodec.Params
}

func (s *stubCodec) Probe(path string) (imgcodec.Meta, error) {
	if s.probe != nil {
		return s.probe(path)
	}
	return imgcodec.Meta{Width: 1600, Height: 1200, Format: "jpeg"}, nil
}

func (s *stubCodec) Encode(ctx context.Context, src, dst string, p imgcodec.Params) (imgcodec.Meta, error) {
	s.mu.Lock()
	s.encoded = append(s.encoded, p)
	s.mu.Unlock()
	if s.encode != nil {
		return s.encode(ctx, src, dst, p)
	}
	return imgcodec.Meta{Width: p.Width, Height: p.Height, Format: p.Format}, nil
}

func defaultLimits() Limits {
	return Limits{
		MaxWidth:        8192,
		MaxHeight:       8192,
		MaxPixels:       64 << 20,
		FileTimeout:     5 * time.Second,
		QualityCapBytes: 4 << 20,
		QualityCap:      70,
		Concurrency:     4,
	}
}

func testStore(t *testing.T) storage.Store {
	t.Helper()
	fs, err := storage.NewFileSystem(t.TempDir())
	require.NoError(t, err)
	return fs
}

// sourceFile writes a placeholder file inside the upload boundary.
func sourceFile(t *testing.T, store storage.Store, name string) model.SourceFile {
	t.Helper()
	path := filepath.Join(store.UploadDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0o644))
	return model.SourceFile{Path: path, OriginalName: name, Size: 6}
}

func noTrack(string) {}

func TestResolveDimensions(t *testing.T) {
	c := New(&stubCodec{}, testStore(t), defaultLimits())

	tests := []struct {
		name         string
		origW, origH int
		opts         model.ConversionOptions
		wantW, wantH int
	}{
		{"no request keeps original", 1600, 1200, model.ConversionOptions{KeepAspect: true}, 1600, 1200},
		{"width only derives height", 1600, 1200, model.ConversionOptions{Width: 800, KeepAspect: true}, 800, 600},
		{"height only derives width", 1600, 1200, model.ConversionOptions{Height: 600, KeepAspect: true}, 800, 600},
		{"width only without aspect keeps height", 1600, 1200, model.ConversionOptions{Width: 800}, 800, 1200},
		{"narrow box derives height from width", 1600, 1200, model.ConversionOptions{Width: 800, Height: 800, KeepAspect: true}, 800, 600},
		{"wide box derives width from height", 1600, 1200, model.ConversionOptions{Width: 2000, Height: 600, KeepAspect: true}, 800, 600},
		{"exact when aspect off", 1600, 1200, model.ConversionOptions{Width: 300, Height: 500}, 300, 500},
		{"rounding to nearest", 1000, 333, model.ConversionOptions{Width: 500, KeepAspect: true}, 500, 167},
		{"clamped to maximum", 1600, 1200, model.ConversionOptions{Width: 9000, KeepAspect: false}, 8192, 1200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := c.resolveDimensions(tt.origW, tt.origH, tt.opts)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestConvert_KeepsUploadOrder(t *testing.T) {
	store := testStore(t)
	codec := &stubCodec{
		encode: func(ctx context.Context, src, dst string, p imgcodec.Params) (imgcodec.Meta, error) {
			// First files finish last, so completion order inverts upload
			// order.
			if filepath.Base(src) == "a.jpg" {
				time.Sleep(50 * time.Millisecond)
			}
			return imgcodec.Meta{Width: p.Width, Height: p.Height, Format: p.Format}, nil
		},
	}
	c := New(codec, store, defaultLimits())

	files := []model.SourceFile{
		sourceFile(t, store, "a.jpg"),
		sourceFile(t, store, "b.jpg"),
		sourceFile(t, store, "c.jpg"),
	}
	results, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "png", Quality: 80, KeepAspect: true}, noTrack)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a.jpg", results[0].OriginalName)
	assert.Equal(t, "b.jpg", results[1].OriginalName)
	assert.Equal(t, "c.jpg", results[2].OriginalName)
}

func TestConvert_PathOutsideBoundary(t *testing.T) {
	store := testStore(t)
	codec := &stubCodec{}
	c := New(codec, store, defaultLimits())

	files := []model.SourceFile{{Path: "/etc/passwd", OriginalName: "../../etc/passwd"}}
	_, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "png", Quality: 80}, noTrack)
	require.Error(t, err)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.CodePathSafety, apiErr.Code)
	assert.Empty(t, codec.encoded, "codec must never see an unsafe path")
}

func TestConvert_DimensionLimit(t *testing.T) {
	store := testStore(t)
	codec := &stubCodec{
		probe: func(string) (imgcodec.Meta, error) {
			return imgcodec.Meta{Width: 9000, Height: 9000, Format: "jpeg"}, nil
		},
	}
	c := New(codec, store, defaultLimits())

	files := []model.SourceFile{sourceFile(t, store, "huge.jpg")}
	_, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "png", Quality: 80}, noTrack)
	require.Error(t, err)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.CodeResourceLimit, apiErr.Code)
	assert.Contains(t, apiErr.Message, "9000x9000")
	assert.Empty(t, codec.encoded, "no resize may be attempted")
}

func TestConvert_PixelCountLimit(t *testing.T) {
	store := testStore(t)
	limits := defaultLimits()
	limits.MaxPixels = 1_000_000
	codec := &stubCodec{
		probe: func(string) (imgcodec.Meta, error) {
			return imgcodec.Meta{Width: 2000, Height: 2000, Format: "jpeg"}, nil
		},
	}
	c := New(codec, store, limits)

	files := []model.SourceFile{sourceFile(t, store, "dense.jpg")}
	_, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "png", Quality: 80}, noTrack)
	require.Error(t, err)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.CodeResourceLimit, apiErr.Code)
	assert.Contains(t, apiErr.Message, "pixels")
}

func TestConvert_AdaptiveQuality(t *testing.T) {
	store := testStore(t)
	codec := &stubCodec{}
	c := New(codec, store, defaultLimits())

	big := sourceFile(t, store, "big.jpg")
	big.Size = 5 << 20

	_, err := c.Convert(context.Background(), []model.SourceFile{big},
		model.ConversionOptions{Format: "webp", Quality: 85, KeepAspect: true}, noTrack)
	require.NoError(t, err)
	require.Len(t, codec.encoded, 1)
	assert.Equal(t, 70, codec.encoded[0].Quality, "oversized source caps effective quality")

	codec.encoded = nil
	small := sourceFile(t, store, "small.jpg")
	_, err = c.Convert(context.Background(), []model.SourceFile{small},
		model.ConversionOptions{Format: "webp", Quality: 85, KeepAspect: true}, noTrack)
	require.NoError(t, err)
	require.Len(t, codec.encoded, 1)
	assert.Equal(t, 85, codec.encoded[0].Quality)
}

func TestConvert_Timeout(t *testing.T) {
	store := testStore(t)
	limits := defaultLimits()
	limits.FileTimeout = 30 * time.Millisecond
	codec := &stubCodec{
		encode: func(ctx context.Context, src, dst string, p imgcodec.Params) (imgcodec.Meta, error) {
			<-ctx.Done()
			return imgcodec.Meta{}, ctx.Err()
		},
	}
	c := New(codec, store, limits)

	files := []model.SourceFile{sourceFile(t, store, "slow.jpg")}
	_, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "png", Quality: 80}, noTrack)
	require.Error(t, err)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.CodeTimeout, apiErr.Code, "a deadline hit is a timeout, not a processing error")
}

func TestConvert_OneFailureFailsBatch(t *testing.T) {
	store := testStore(t)
	codec := &stubCodec{
		probe: func(path string) (imgcodec.Meta, error) {
			if filepath.Base(path) == "bad.jpg" {
				return imgcodec.Meta{}, assert.AnError
			}
			return imgcodec.Meta{Width: 100, Height: 100, Format: "jpeg"}, nil
		},
	}
	c := New(codec, store, defaultLimits())

	files := []model.SourceFile{
		sourceFile(t, store, "good.jpg"),
		sourceFile(t, store, "bad.jpg"),
		sourceFile(t, store, "also-good.jpg"),
	}
	results, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "png", Quality: 80}, noTrack)
	require.Error(t, err)
	assert.Nil(t, results)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.CodeProcessing, apiErr.Code)
}

func TestConvert_TracksOutputPaths(t *testing.T) {
	store := testStore(t)
	c := New(&stubCodec{}, store, defaultLimits())

	var (
		mu      sync.Mutex
		tracked []string
	)
	track := func(p string) {
		mu.Lock()
		tracked = append(tracked, p)
		mu.Unlock()
	}

	files := []model.SourceFile{
		sourceFile(t, store, "a.jpg"),
		sourceFile(t, store, "b.jpg"),
	}
	results, err := c.Convert(context.Background(), files, model.ConversionOptions{Format: "avif", Quality: 80, KeepAspect: true}, track)
	require.NoError(t, err)
	require.Len(t, tracked, 2)
	for _, res := range results {
		assert.Contains(t, tracked, res.OutputPath)
		assert.Equal(t, store.OutputDir(), filepath.Dir(res.OutputPath))
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo"},
		{"my holiday photo.png", "my-holiday-photo"},
		{"../../../etc/passwd", "passwd"},
		{"???.gif", "image"},
		{"", "image"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, baseName(tt.in), "input %q", tt.in)
	}
}

func TestOutputExt(t *testing.T) {
	assert.Equal(t, "jpg", outputExt("jpeg"))
	assert.Equal(t, "webp", outputExt("webp"))
	assert.Equal(t, "avif", outputExt("avif"))
}
