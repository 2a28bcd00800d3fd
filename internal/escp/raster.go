package escp

import (
	"errors"
	"fmt"

	"dpu414-print/internal/imaging"
)

// BandHeight is the number of dot rows packed into each raster line.
const BandHeight = 8

// BandCount returns the number of raster lines needed for height rows.
func BandCount(height int) int {
	return (height + BandHeight - 1) / BandHeight
}

// PackBands packs the bitmap into bands of 8 rows, one byte per column with
// the top row in the most significant bit. Rows past the bitmap height are
// left blank so every band is Width bytes long.
func PackBands(b *imaging.Bitmap) [][]byte {
	bands := make([][]byte, 0, BandCount(b.Height))

	for y := 0; y < b.Height; y += BandHeight {
		band := make([]byte, b.Width)
		for x := 0; x < b.Width; x++ {
			var col byte
			for bit := 0; bit < BandHeight; bit++ {
				if b.At(x, y+bit) {
					col |= 1 << (7 - bit)
				}
			}
			band[x] = col
		}
		bands = append(bands, band)
	}

	return bands
}

// EncodeImage turns a bitmap into one raster line frame per band.
func EncodeImage(b *imaging.Bitmap) ([]Frame, error) {
	if b.Empty() {
		return nil, &imaging.DecodeError{Err: errors.New("bitmap has zero width or height")}
	}
	if b.Width > MaxPayload {
		return nil, fmt.Errorf("%w: width %d", ErrPayloadTooLong, b.Width)
	}

	bands := PackBands(b)
	frames := make([]Frame, len(bands))
	for i, band := range bands {
		frames[i] = RasterLine(band)
	}
	return frames, nil
}
