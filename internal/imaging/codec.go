package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// PreviewJPEGQuality is used for page previews and assembled page art.
	PreviewJPEGQuality = 88

	// AnalysisJPEGQuality is used for the downscaled vision upload.
	AnalysisJPEGQuality = 85

	// AnalysisMaxDim bounds the longer edge of the vision upload.
	AnalysisMaxDim = 1024
)

// Decode parses PNG, JPEG, or WebP bytes into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG serializes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ForAnalysis downscales photo bytes for the vision request: longer edge
// capped at 1024px, re-encoded as JPEG.
func ForAnalysis(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(Thumbnail(img, AnalysisMaxDim), AnalysisJPEGQuality)
}
