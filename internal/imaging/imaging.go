// Package imaging implements the raster operations behind page composition:
// square cropping, resampling, dominant-color washes, and caption bands.
// Everything here is deterministic and offline.
package imaging

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

const (
	// PagePixels is the full-bleed page edge at print resolution:
	// 8.5in trim + 2x0.125in bleed at 300 DPI.
	PagePixels = 2625

	// SafeMarginPixels keeps text and faces clear of the trim line
	// (0.25in at 300 DPI).
	SafeMarginPixels = 75
)

// SquareFit center-crops img to a square and resamples it to size x size.
// The crop keeps the middle of the longer axis.
func SquareFit(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	edge := w
	if h < w {
		edge = h
	}
	x0 := b.Min.X + (w-edge)/2
	y0 := b.Min.Y + (h-edge)/2
	crop := image.Rect(x0, y0, x0+edge, y0+edge)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, xdraw.Over, nil)
	return dst
}

// Thumbnail resamples img so its longer edge is at most maxDim,
// preserving aspect ratio. Images already within bounds are copied as-is.
func Thumbnail(img image.Image, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	tw, th := w, h
	if w > maxDim || h > maxDim {
		if w >= h {
			tw = maxDim
			th = h * maxDim / w
		} else {
			th = maxDim
			tw = w * maxDim / h
		}
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// DominantColor estimates the dominant color of img by averaging a
// heavily downsampled copy. Good enough for wash tinting.
func DominantColor(img image.Image) color.RGBA {
	small := image.NewRGBA(image.Rect(0, 0, 16, 16))
	xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var r, g, b, n uint64
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := small.RGBAAt(x, y)
			r += uint64(c.R)
			g += uint64(c.G)
			b += uint64(c.B)
			n++
		}
	}
	return color.RGBA{
		R: uint8(r / n),
		G: uint8(g / n),
		B: uint8(b / n),
		A: 255,
	}
}

// Wash overlays dst with a translucent tint derived from base:
// each channel is lifted toward a softer pastel (0.7c + 40) and blended
// at the given alpha.
func Wash(dst *image.RGBA, base color.RGBA, alpha uint8) {
	tint := color.RGBA{
		R: washChannel(base.R),
		G: washChannel(base.G),
		B: washChannel(base.B),
		A: 255,
	}

	b := dst.Bounds()
	a := uint32(alpha)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := dst.RGBAAt(x, y)
			c.R = blend(c.R, tint.R, a)
			c.G = blend(c.G, tint.G, a)
			c.B = blend(c.B, tint.B, a)
			dst.SetRGBA(x, y, c)
		}
	}
}

func washChannel(c uint8) uint8 {
	v := uint32(c)*7/10 + 40
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func blend(under, over uint8, alpha uint32) uint8 {
	return uint8((uint32(under)*(255-alpha) + uint32(over)*alpha) / 255)
}
