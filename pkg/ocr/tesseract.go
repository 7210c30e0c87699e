package ocr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// MethodLocal identifies the local Tesseract strategy in extraction results.
const MethodLocal = "local_ocr"

// TesseractStrategy runs a local Tesseract engine over a preprocessed bitmap.
// Handwriting accuracy is noticeably worse than the vision path, so it sits
// last in the chain before giving up.
type TesseractStrategy struct {
	contrast     float64
	sharpenSigma float64
}

// NewTesseractStrategy constructs the local OCR fallback.
func NewTesseractStrategy() *TesseractStrategy {
	return &TesseractStrategy{contrast: 40, sharpenSigma: 1.0}
}

// Name implements Strategy.
func (t *TesseractStrategy) Name() string {
	return MethodLocal
}

// Attempt implements Strategy. The bitmap is converted to grayscale,
// contrast-boosted, and sharpened before recognition.
func (t *TesseractStrategy) Attempt(_ context.Context, img Image) (string, error) {
	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	processed := imaging.Grayscale(src)
	processed = imaging.AdjustContrast(processed, t.contrast)
	processed = imaging.Sharpen(processed, t.sharpenSigma)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, processed, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition: %w", err)
	}

	return text, nil
}
