package ocr

import (
	"context"
	"errors"

	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ai"
)

// MethodVision identifies the vision-LLM strategy in extraction results.
const MethodVision = "vision_ocr"

// VisionStrategy transcribes images through a vision-capable LLM endpoint.
type VisionStrategy struct {
	transcriber ai.Transcriber
}

// NewVisionStrategy wraps a vision transcriber as an OCR strategy.
func NewVisionStrategy(transcriber ai.Transcriber) *VisionStrategy {
	return &VisionStrategy{transcriber: transcriber}
}

// Name implements Strategy.
func (v *VisionStrategy) Name() string {
	return MethodVision
}

// Attempt implements Strategy. A missing credential surfaces as
// ErrUnavailable so the chain moves on to the local engine.
func (v *VisionStrategy) Attempt(ctx context.Context, img Image) (string, error) {
	if v.transcriber == nil {
		return "", ErrUnavailable
	}

	text, err := v.transcriber.Transcribe(ctx, ai.TranscribeRequest{
		Image:    img.Data,
		MIMEType: img.MIMEType,
		Context:  img.Context,
		APIKey:   img.APIKey,
	})
	if err != nil {
		if errors.Is(err, ai.ErrNoCredential) {
			return "", ErrUnavailable
		}
		return "", err
	}

	return text, nil
}
