package imaging

import (
	"image"
	"image/color"
)

// Bitmap is a monochrome pixel matrix. A true pixel is printable (dark).
type Bitmap struct {
	Width  int
	Height int
	pix    []bool
}

// NewBitmap returns an all-white bitmap of the given size.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Bitmap{
		Width:  width,
		Height: height,
		pix:    make([]bool, width*height),
	}
}

// Empty reports whether the bitmap has no pixels.
func (b *Bitmap) Empty() bool {
	return b == nil || b.Width == 0 || b.Height == 0
}

// At returns the pixel at (x, y). Pixels outside the bitmap are not printable.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.pix[y*b.Width+x]
}

// Set sets the pixel at (x, y). Out of range writes are ignored.
func (b *Bitmap) Set(x, y int, dark bool) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.pix[y*b.Width+x] = dark
}

// Image renders the bitmap as a black-on-white grayscale image, used for
// previews and for feeding a bitmap back through Monochrome.
func (b *Bitmap) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) {
				img.SetGray(x, y, color.Gray{0}) // black
			} else {
				img.SetGray(x, y, color.Gray{255}) // white
			}
		}
	}

	return img
}
