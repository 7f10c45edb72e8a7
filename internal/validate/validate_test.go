package validate

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbre/imgbatch/internal/model"
)

func TestOptions_Defaults(t *testing.T) {
	opts, errs := Options(RawOptions{Format: "webp"})
	require.Empty(t, errs)
	assert.Equal(t, model.ConversionOptions{
		Format:     "webp",
		Quality:    DefaultQuality,
		KeepAspect: true,
	}, opts)
}

func TestOptions_AllFields(t *testing.T) {
	opts, errs := Options(RawOptions{
		Format:     "JPEG",
		Width:      "800",
		Height:     "600",
		Quality:    "85",
		KeepAspect: "false",
	})
	require.Empty(t, errs)
	assert.Equal(t, model.ConversionOptions{
		Format:     "jpeg",
		Width:      800,
		Height:     600,
		Quality:    85,
		KeepAspect: false,
	}, opts)
}

func TestOptions_CollectsEveryInvalidField(t *testing.T) {
	_, errs := Options(RawOptions{
		Format:     "bmp",
		Width:      "abc",
		Height:     "-5",
		Quality:    "high",
		KeepAspect: "maybe",
	})
	require.Len(t, errs, 5)

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"format", "width", "height", "quality", "maintainAspectRatio"}, fields)
}

func TestOptions_MissingFormat(t *testing.T) {
	_, errs := Options(RawOptions{})
	require.Len(t, errs, 1)
	assert.Equal(t, "format", errs[0].Field)
}

func TestOptions_QualityClamped(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 1},
		{"-10", 1},
		{"100", 100},
		{"250", 100},
		{"80", 80},
	}
	for _, tt := range tests {
		opts, errs := Options(RawOptions{Format: "png", Quality: tt.in})
		require.Empty(t, errs, "quality %q", tt.in)
		assert.Equal(t, tt.want, opts.Quality, "quality %q", tt.in)
	}
}

// Re-validating the string form of a valid result yields the same options.
func TestOptions_Idempotent(t *testing.T) {
	first, errs := Options(RawOptions{Format: "avif", Width: "640", Quality: "90", KeepAspect: "true"})
	require.Empty(t, errs)

	second, errs := Options(RawOptions{
		Format:     first.Format,
		Width:      strconv.Itoa(first.Width),
		Quality:    strconv.Itoa(first.Quality),
		KeepAspect: strconv.FormatBool(first.KeepAspect),
	})
	require.Empty(t, errs)
	assert.Equal(t, first, second)
}

func TestFileCount(t *testing.T) {
	assert.Nil(t, FileCount(1, 5))
	assert.Nil(t, FileCount(5, 5))

	err := FileCount(6, 5)
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "too many files")

	err = FileCount(0, 5)
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "no files")
}
