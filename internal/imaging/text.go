package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// DPU-414 prints 8 dots per millimetre.
const printerDPI = 203

// textMargin is the horizontal padding, in dots, on each side of a line.
const textMargin = 4

// ErrTextOverflow is returned when vertical lines do not fit across the paper.
var ErrTextOverflow = errors.New("text does not fit across the paper")

type Orientation int

const (
	Horizontal Orientation = iota
	// Vertical runs the text along the paper feed, for banners.
	Vertical
)

// TextOptions configures text rendering
type TextOptions struct {
	FontSize      float64
	Orientation   Orientation
	Invert        bool // White text on black background
	WordBreakOnly bool // Only break lines on spaces, not mid-word
}

// DefaultTextOptions returns 12pt horizontal text.
func DefaultTextOptions() TextOptions {
	return TextOptions{FontSize: 12}
}

// RenderText draws text into an image exactly width dots wide. Horizontal
// text is wrapped to the width and the image grows downward with the number
// of lines. Vertical text is drawn one line per paragraph and rotated so the
// lines run down the paper; more lines than fit across the paper fail with
// ErrTextOverflow.
func RenderText(text string, width int, opts TextOptions) (image.Image, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultTextOptions().FontSize
	}

	face := truetype.NewFace(f, &truetype.Options{Size: opts.FontSize, DPI: printerDPI})
	defer face.Close()
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()

	var lines []string
	renderW := width
	switch {
	case opts.Orientation == Vertical:
		lines = strings.Split(text, "\n")
		renderW = 0
		for _, line := range lines {
			if w := measureString(face, line); w > renderW {
				renderW = w
			}
		}
		renderW += 2 * textMargin
	case opts.WordBreakOnly:
		lines = wrapTextWordOnly(text, face, width-2*textMargin)
	default:
		lines = wrapText(text, face, width-2*textMargin)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	renderH := len(lines) * lineHeight
	if opts.Orientation == Vertical {
		// The rotated image must come out exactly width dots wide.
		if renderH > width {
			return nil, fmt.Errorf("%w: %d lines need %d dots, paper is %d",
				ErrTextOverflow, len(lines), renderH, width)
		}
		renderH = width
	}

	bgColor := color.White
	fgColor := color.Black
	if opts.Invert {
		bgColor = color.Black
		fgColor = color.White
	}

	img := image.NewRGBA(image.Rect(0, 0, renderW, renderH))
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(printerDPI)
	c.SetFont(f)
	c.SetFontSize(opts.FontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(&image.Uniform{fgColor})
	c.SetHinting(font.HintingFull)

	y := metrics.Ascent.Ceil()
	if opts.Orientation == Vertical {
		// Center the block across the paper width.
		y = (renderH-len(lines)*lineHeight)/2 + metrics.Ascent.Ceil()
	}

	for _, line := range lines {
		x := textMargin
		if opts.Orientation == Horizontal {
			x = (renderW - measureString(face, line)) / 2
		}
		if _, err := c.DrawString(line, freetype.Pt(x, y)); err != nil {
			return nil, err
		}
		y += lineHeight
	}

	if opts.Orientation == Vertical {
		return rotate90CW(img), nil
	}

	return img, nil
}

// wrapText splits text into lines that fit within maxWidth (breaks anywhere)
func wrapText(text string, face font.Face, maxWidth int) []string {
	var lines []string
	var currentLine string

	for _, char := range text {
		if char == '\n' {
			lines = append(lines, currentLine)
			currentLine = ""
			continue
		}
		testLine := currentLine + string(char)
		if measureString(face, testLine) > maxWidth && currentLine != "" {
			lines = append(lines, currentLine)
			currentLine = string(char)
		} else {
			currentLine = testLine
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

// wrapTextWordOnly splits text into lines, only breaking at word boundaries
func wrapTextWordOnly(text string, face font.Face, maxWidth int) []string {
	var lines []string

	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		currentLine := words[0]
		if measureString(face, currentLine) > maxWidth {
			currentLine = breakLongWord(currentLine, face, maxWidth, &lines)
		}
		for _, word := range words[1:] {
			testLine := currentLine + " " + word

			if measureString(face, testLine) <= maxWidth {
				currentLine = testLine
				continue
			}

			lines = append(lines, currentLine)
			if measureString(face, word) > maxWidth {
				currentLine = breakLongWord(word, face, maxWidth, &lines)
			} else {
				currentLine = word
			}
		}

		if currentLine != "" {
			lines = append(lines, currentLine)
		}
	}

	return lines
}

// breakLongWord breaks a single word that's too long to fit
func breakLongWord(word string, face font.Face, maxWidth int, lines *[]string) string {
	var currentPart string
	for _, char := range word {
		testPart := currentPart + string(char)
		if measureString(face, testPart) > maxWidth && currentPart != "" {
			*lines = append(*lines, currentPart)
			currentPart = string(char)
		} else {
			currentPart = testPart
		}
	}
	return currentPart
}

// measureString returns the width of a string in pixels
func measureString(face font.Face, s string) int {
	var width fixed.Int26_6
	for _, r := range s {
		adv, ok := face.GlyphAdvance(r)
		if ok {
			width += adv
		}
	}
	return width.Ceil()
}

// rotate90CW rotates an image 90 degrees clockwise
func rotate90CW(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return dst
}
