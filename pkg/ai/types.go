package ai

import (
	"context"
	"errors"
)

// ErrNoCredential indicates neither the service configuration nor the request
// supplied an API key for the provider.
var ErrNoCredential = errors.New("llm api key is required")

// GradeRequest carries one grading prompt to the chat-completion endpoint.
type GradeRequest struct {
	Model  string
	Prompt string
	// APIKey optionally overrides the configured credential for this call.
	APIKey string
}

// Grader describes a chat-completion model capable of grading answer sheets.
// The returned string is the raw text payload of the first choice.
type Grader interface {
	Complete(ctx context.Context, req GradeRequest) (string, error)
}

// TranscribeRequest carries one image to the vision OCR endpoint.
type TranscribeRequest struct {
	Image    []byte
	MIMEType string
	// Context describes where the image came from, e.g. "page 2 of 5".
	Context string
	APIKey  string
}

// Transcriber describes a vision-capable model that extracts text from images.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
}
