package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	imgproc "github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultWidth is the raster width in dots sent to the printer.
const DefaultWidth = 300

// MaxWidth is the longest dot line a DPU-414 prints: 80 mm at 8 dots/mm.
const MaxWidth = 640

// DefaultThreshold is the midpoint between black and white.
const DefaultThreshold = 128

// ErrImageDecode matches every DecodeError.
var ErrImageDecode = errors.New("image decode failed")

// DecodeError reports an image that could not be decoded or has no pixels.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrImageDecode }

var errEmptyImage = errors.New("image has zero width or height")

var resampleFilters = map[string]imgproc.ResampleFilter{
	"nearest": imgproc.NearestNeighbor,
	"box":     imgproc.Box,
	"linear":  imgproc.Linear,
	"lanczos": imgproc.Lanczos,
}

// ResampleFilters lists the accepted resample filter names.
func ResampleFilters() []string {
	names := make([]string, 0, len(resampleFilters))
	for name := range resampleFilters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupResample returns the resample filter registered under name.
func LookupResample(name string) (imgproc.ResampleFilter, error) {
	f, ok := resampleFilters[strings.ToLower(name)]
	if !ok {
		return imgproc.ResampleFilter{}, fmt.Errorf("unknown resample filter %q (want one of %s)",
			name, strings.Join(ResampleFilters(), ", "))
	}
	return f, nil
}

// Options controls conversion of a source image into a printable Bitmap.
type Options struct {
	Width     int    // target width in dots
	Threshold uint8  // gray values below this are printable
	Dither    bool   // Floyd-Steinberg error diffusion before thresholding
	Invert    bool   // swap printable and blank after binarization
	Resample  string // resample filter name, see ResampleFilters
}

// DefaultOptions returns the conversion used by the DPU-414 driver.
func DefaultOptions() Options {
	return Options{
		Width:     DefaultWidth,
		Threshold: DefaultThreshold,
		Resample:  "nearest",
	}
}

// LoadImage loads an image from file
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
		}
		return nil, err
	}
	return img, nil
}

// Decode decodes png, jpeg, gif, bmp or webp data.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: errEmptyImage}
	}
	return img, nil
}

// ScaledHeight returns the height that keeps the aspect ratio of a srcW×srcH
// image scaled to width. The result is never less than 1.
func ScaledHeight(srcW, srcH, width int) int {
	h := int(math.Round(float64(srcH) * float64(width) / float64(srcW)))
	if h < 1 {
		h = 1
	}
	return h
}

// Monochrome resizes img to opts.Width keeping its aspect ratio and converts
// it to a Bitmap.
func Monochrome(img image.Image, opts Options) (*Bitmap, error) {
	if img == nil {
		return nil, &DecodeError{Err: errEmptyImage}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: errEmptyImage}
	}
	if opts.Width <= 0 {
		return nil, fmt.Errorf("invalid target width %d", opts.Width)
	}
	if opts.Resample == "" {
		opts.Resample = "nearest"
	}
	filter, err := LookupResample(opts.Resample)
	if err != nil {
		return nil, err
	}

	resized := Resize(img, opts.Width, filter)
	return Binarize(resized, opts.Threshold, opts.Dither, opts.Invert), nil
}

// Resize scales img to width columns, height following the aspect ratio.
// An image already at that size is returned unchanged.
func Resize(img image.Image, width int, filter imgproc.ResampleFilter) image.Image {
	b := img.Bounds()
	height := ScaledHeight(b.Dx(), b.Dy(), width)
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imgproc.Resize(img, width, height, filter)
}

// Binarize converts img to a Bitmap. A pixel is printable when its gray
// value is below threshold.
func Binarize(img image.Image, threshold uint8, diffuse, invert bool) *Bitmap {
	if diffuse {
		d := dither.NewDitherer([]color.Color{color.Black, color.White})
		d.Matrix = dither.FloydSteinberg
		img = d.DitherCopy(img)
	}

	bounds := img.Bounds()
	bm := NewBitmap(bounds.Dx(), bounds.Dy())

	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			gray := rgbToGray(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			dark := gray < threshold
			if invert {
				dark = !dark
			}
			bm.Set(x, y, dark)
		}
	}

	return bm
}

// rgbToGray converts a color to grayscale, flattening transparency onto white
func rgbToGray(c color.Color) uint8 {
	r, g, b, a := c.RGBA()
	// Values are alpha-premultiplied, so adding the uncovered part yields the
	// color over a white background.
	bg := 0xffff - a
	r, g, b = r+bg, g+bg, b+bg
	// Standard luminance formula, values are 16-bit so divide by 256
	gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
	if gray > 255 {
		gray = 255
	}
	return uint8(gray)
}
