package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestScaledHeight(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		width      int
		want       int
	}{
		{"downscale", 600, 400, 300, 200},
		{"upscale", 100, 50, 300, 150},
		{"rounds half up", 200, 1, 300, 2},
		{"rounds to nearest", 7, 10, 300, 429},
		{"never below one", 3000, 1, 300, 1},
		{"same size", 300, 77, 300, 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaledHeight(tt.srcW, tt.srcH, tt.width))
		})
	}
}

func TestMonochromeWidthIsTarget(t *testing.T) {
	sizes := []image.Point{{1, 1}, {17, 3}, {300, 300}, {1024, 77}, {5, 90}}
	for _, resample := range ResampleFilters() {
		for _, sz := range sizes {
			opts := DefaultOptions()
			opts.Resample = resample

			bm, err := Monochrome(solid(sz.X, sz.Y, color.Black), opts)
			require.NoError(t, err)
			assert.Equal(t, DefaultWidth, bm.Width, "%s %v", resample, sz)
			assert.Equal(t, ScaledHeight(sz.X, sz.Y, DefaultWidth), bm.Height, "%s %v", resample, sz)
		}
	}
}

func TestMonochromeThreshold(t *testing.T) {
	opts := Options{Width: 4, Threshold: DefaultThreshold}

	dark, err := Monochrome(solid(4, 2, color.Gray{Y: 100}), opts)
	require.NoError(t, err)
	light, err := Monochrome(solid(4, 2, color.Gray{Y: 200}), opts)
	require.NoError(t, err)

	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			assert.True(t, dark.At(x, y))
			assert.False(t, light.At(x, y))
		}
	}
}

func TestMonochromeInvert(t *testing.T) {
	opts := Options{Width: 2, Threshold: DefaultThreshold, Invert: true}

	bm, err := Monochrome(solid(2, 2, color.White), opts)
	require.NoError(t, err)
	assert.True(t, bm.At(0, 0))
	assert.True(t, bm.At(1, 1))
}

func TestMonochromeTransparentIsWhite(t *testing.T) {
	bm, err := Monochrome(image.NewNRGBA(image.Rect(0, 0, 3, 3)), Options{Width: 3, Threshold: DefaultThreshold})
	require.NoError(t, err)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			assert.False(t, bm.At(x, y))
		}
	}
}

func TestMonochromeIdempotent(t *testing.T) {
	const width = 16
	src := NewBitmap(width, 11)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			src.Set(x, y, (x*y+x)%3 == 0)
		}
	}

	for _, diffuse := range []bool{false, true} {
		opts := Options{Width: width, Threshold: DefaultThreshold, Dither: diffuse}

		once, err := Monochrome(src.Image(), opts)
		require.NoError(t, err)
		twice, err := Monochrome(once.Image(), opts)
		require.NoError(t, err)

		assert.Equal(t, src, once, "dither=%v", diffuse)
		assert.Equal(t, once, twice, "dither=%v", diffuse)
	}
}

func TestMonochromeDitherMidGray(t *testing.T) {
	opts := Options{Width: 32, Threshold: DefaultThreshold, Dither: true}

	bm, err := Monochrome(solid(32, 32, color.Gray{Y: 128}), opts)
	require.NoError(t, err)

	dark := 0
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			if bm.At(x, y) {
				dark++
			}
		}
	}
	// Error diffusion of a mid gray prints some dots, but not all of them.
	assert.Greater(t, dark, 0)
	assert.Less(t, dark, 32*32)
}

func TestMonochromeErrors(t *testing.T) {
	_, err := Monochrome(image.NewRGBA(image.Rect(0, 0, 0, 5)), DefaultOptions())
	assert.ErrorIs(t, err, ErrImageDecode)

	_, err = Monochrome(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrImageDecode)

	opts := DefaultOptions()
	opts.Resample = "bogus"
	_, err = Monochrome(solid(2, 2, color.Black), opts)
	assert.ErrorContains(t, err, "unknown resample filter")

	opts = DefaultOptions()
	opts.Width = 0
	_, err = Monochrome(solid(2, 2, color.Black), opts)
	assert.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(6, 4, color.Black)))
	good := filepath.Join(dir, "good.png")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0o644))

	img, err := LoadImage(good)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), img.Bounds())

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	_, err = LoadImage(bad)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, bad, de.Path)
	assert.True(t, strings.Contains(err.Error(), bad))

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, ErrImageDecode)
}

func TestBitmapImageRoundTrip(t *testing.T) {
	bm := NewBitmap(3, 2)
	bm.Set(0, 0, true)
	bm.Set(2, 1, true)
	bm.Set(5, 5, true) // ignored

	img := bm.Image()
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(2, 1).Y)
	assert.False(t, bm.At(5, 5))
	assert.False(t, bm.At(-1, 0))
}
