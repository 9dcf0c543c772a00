package backend

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/fablepress/fable/internal/imaging"
)

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func referencePhoto(t *testing.T) []byte {
	t.Helper()
	img := solidRGBA(200, 300, color.RGBA{R: 60, G: 140, B: 80, A: 255})
	data, err := imaging.EncodeJPEG(img, 90)
	if err != nil {
		t.Fatalf("failed to encode reference: %v", err)
	}
	return data
}

func TestFallbackRenderer_Generate(t *testing.T) {
	r := NewFallbackRenderer()
	res, err := r.Generate(context.Background(), &Request{
		Reference: referencePhoto(t),
		Caption:   "Maya found a key beneath the ferns.",
		Size:      256,
		Page:      1,
	})
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}

	img, err := imaging.Decode(res.Image)
	if err != nil {
		t.Fatalf("fallback output not decodable: %v", err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Errorf("expected 256x256 page, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestFallbackRenderer_UnusableReference(t *testing.T) {
	r := NewFallbackRenderer()

	tests := []struct {
		name string
		ref  []byte
	}{
		{"nil reference", nil},
		{"garbage bytes", []byte("not an image at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Generate(context.Background(), &Request{
				Reference: tt.ref,
				Caption:   "Once upon a time.",
				Size:      128,
				Page:      2,
			})
			if err != nil {
				t.Fatalf("fallback must not fail: %v", err)
			}
			if _, err := imaging.Decode(res.Image); err != nil {
				t.Errorf("fallback output not decodable: %v", err)
			}
		})
	}
}

func TestFallbackRenderer_DefaultSize(t *testing.T) {
	r := NewFallbackRenderer()
	res, err := r.Generate(context.Background(), &Request{Caption: "Hello.", Page: 3})
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	img, err := imaging.Decode(res.Image)
	if err != nil {
		t.Fatalf("fallback output not decodable: %v", err)
	}
	if img.Bounds().Dx() != imaging.PagePixels {
		t.Errorf("expected default %dpx page, got %d", imaging.PagePixels, img.Bounds().Dx())
	}
}
