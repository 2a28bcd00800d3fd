package imaging

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countDark(bm *Bitmap) int {
	n := 0
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			if bm.At(x, y) {
				n++
			}
		}
	}
	return n
}

func TestRenderTextHorizontal(t *testing.T) {
	img, err := RenderText("Hello DPU-414", DefaultWidth, DefaultTextOptions())
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 0)

	bm, err := Monochrome(img, DefaultOptions())
	require.NoError(t, err)
	assert.Greater(t, countDark(bm), 0)
}

func TestRenderTextWrapsLongLines(t *testing.T) {
	short, err := RenderText("abc", 120, DefaultTextOptions())
	require.NoError(t, err)
	long, err := RenderText("the quick brown fox jumps over the lazy dog", 120, DefaultTextOptions())
	require.NoError(t, err)

	assert.Greater(t, long.Bounds().Dy(), short.Bounds().Dy())
	assert.Equal(t, 120, long.Bounds().Dx())
}

func TestRenderTextExplicitNewlines(t *testing.T) {
	opts := DefaultTextOptions()
	opts.WordBreakOnly = true

	one, err := RenderText("a", DefaultWidth, opts)
	require.NoError(t, err)
	three, err := RenderText("a\nb\nc", DefaultWidth, opts)
	require.NoError(t, err)

	assert.Equal(t, 3*one.Bounds().Dy(), three.Bounds().Dy())
}

func TestRenderTextVertical(t *testing.T) {
	opts := DefaultTextOptions()
	opts.Orientation = Vertical

	img, err := RenderText("BANNER", DefaultWidth, opts)
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 2*textMargin)
}

func TestRenderTextVerticalOverflow(t *testing.T) {
	opts := DefaultTextOptions()
	opts.Orientation = Vertical
	many := strings.Repeat("line\n", 19) + "line"

	_, err := RenderText(many, DefaultWidth, opts)
	assert.ErrorIs(t, err, ErrTextOverflow)

	opts.Orientation = Horizontal
	img, err := RenderText(many, DefaultWidth, opts)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dy(), DefaultWidth)
}

func TestRenderTextInvert(t *testing.T) {
	opts := DefaultTextOptions()
	opts.Invert = true

	img, err := RenderText(" ", 40, opts)
	require.NoError(t, err)

	bm, err := Monochrome(img, Options{Width: 40, Threshold: DefaultThreshold})
	require.NoError(t, err)
	assert.Equal(t, bm.Width*bm.Height, countDark(bm))
}

func TestRotate90CW(t *testing.T) {
	src := NewBitmap(3, 2)
	src.Set(0, 0, true)

	rotated := rotate90CW(src.Image())
	assert.Equal(t, image.Rect(0, 0, 2, 3), rotated.Bounds())

	bm := Binarize(rotated, DefaultThreshold, false, false)
	// Top-left moves to top-right.
	assert.True(t, bm.At(1, 0))
	assert.Equal(t, 1, countDark(bm))
}

func TestQRCode(t *testing.T) {
	img, err := QRCode("https://example.com/receipt/42", 120, "")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 120, 120), img.Bounds())

	bm, err := Monochrome(img, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, bm.Width)
	assert.Equal(t, DefaultWidth, bm.Height)
	assert.Greater(t, countDark(bm), 0)

	_, err = QRCode("", 120, "")
	assert.Error(t, err)

	_, err = QRCode("x", 120, "extreme")
	assert.ErrorContains(t, err, "unknown qr recovery level")
}
