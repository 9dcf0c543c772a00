package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// captionMaxLines caps the wrapped caption; anything longer is truncated.
	captionMaxLines = 3

	// captionBandFraction and captionBandMaxPixels bound the band height:
	// min(22% of the page, 320px scaled to the page size).
	captionBandFraction  = 0.22
	captionBandMaxPixels = 320
)

// CaptionBandHeight returns the pixel height of the caption band for a
// page of the given edge length.
func CaptionBandHeight(pageSize int) int {
	byFraction := int(float64(pageSize) * captionBandFraction)
	scaled := captionBandMaxPixels * pageSize / PagePixels
	if scaled < byFraction {
		return scaled
	}
	return byFraction
}

// DrawCaptionBand paints a dark strip across the bottom of dst and renders
// the caption into it, word-wrapped to at most three lines.
func DrawCaptionBand(dst *image.RGBA, caption string) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return
	}

	b := dst.Bounds()
	bandH := CaptionBandHeight(b.Dy())
	band := image.Rect(b.Min.X, b.Max.Y-bandH, b.Max.X, b.Max.Y)

	shade := color.RGBA{R: 20, G: 24, B: 34, A: 255}
	tintBand(dst, band, shade, 215)

	face := basicfont.Face7x13
	charW := face.Advance
	lineH := face.Height + 3

	// The bitmap face is rendered at 1x and integer-upscaled so large
	// pages still get legible text.
	margin := b.Dx() / 24
	scale := bandH / (lineH * (captionMaxLines + 1))
	if scale < 1 {
		scale = 1
	}
	maxCols := (b.Dx() - 2*margin) / (charW * scale)
	if maxCols < 8 {
		maxCols = 8
	}

	lines := WrapCaption(caption, maxCols)

	textW := 0
	for _, ln := range lines {
		if len(ln) > textW {
			textW = len(ln)
		}
	}
	textW *= charW
	textH := lineH * len(lines)

	layer := image.NewRGBA(image.Rect(0, 0, textW, textH))
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(color.RGBA{R: 250, G: 248, B: 240, A: 255}),
		Face: face,
	}
	for i, ln := range lines {
		d.Dot = fixed.P((textW-len(ln)*charW)/2, i*lineH+face.Ascent)
		d.DrawString(ln)
	}

	sw, sh := textW*scale, textH*scale
	x0 := band.Min.X + (band.Dx()-sw)/2
	y0 := band.Min.Y + (band.Dy()-sh)/2
	target := image.Rect(x0, y0, x0+sw, y0+sh)
	xdraw.NearestNeighbor.Scale(dst, target, layer, layer.Bounds(), xdraw.Over, nil)
}

// WrapCaption word-wraps text to maxCols columns, at most three lines.
// A final overflowing line is truncated with an ellipsis.
func WrapCaption(text string, maxCols int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		onLastLine := len(lines) == captionMaxLines-1
		if len(cur)+1+len(w) <= maxCols || onLastLine {
			cur += " " + w
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	lines = append(lines, cur)

	last := lines[len(lines)-1]
	if len(last) > maxCols {
		runes := []rune(last)
		if maxCols-1 < len(runes) {
			runes = runes[:maxCols-1]
		}
		lines[len(lines)-1] = string(runes) + "…"
	}
	return lines
}

func tintBand(dst *image.RGBA, band image.Rectangle, shade color.RGBA, alpha uint32) {
	overlay := image.NewUniform(color.RGBA{
		R: uint8(uint32(shade.R) * alpha / 255),
		G: uint8(uint32(shade.G) * alpha / 255),
		B: uint8(uint32(shade.B) * alpha / 255),
		A: uint8(alpha),
	})
	draw.Draw(dst, band, overlay, image.Point{}, draw.Over)
}
