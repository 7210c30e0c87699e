package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var visionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "smartgrade",
	Subsystem: "ai",
	Name:      "vision_failures_total",
	Help:      "Number of failed vision OCR requests",
}, []string{"model"})

// VisionConfig defines configuration options for the vision OCR client.
type VisionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// VisionClient implements Transcriber against an OpenAI-compatible vision endpoint.
type VisionClient struct {
	cfg    VisionConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewVisionClient builds a vision OCR client using the provided configuration.
func NewVisionClient(cfg VisionConfig) *VisionClient {
	if cfg.Model == "" {
		cfg.Model = "meta-llama/llama-4-scout-17b-16e-instruct"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &VisionClient{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/smartgrade-ai/smartgrade-go-api/pkg/ai/vision"),
		logger: logger,
	}
}

// Transcribe sends the image to the vision endpoint and returns the raw transcription.
func (v *VisionClient) Transcribe(parent context.Context, req TranscribeRequest) (string, error) {
	ctx, span := v.tracer.Start(parent, "ai.transcribe", trace.WithAttributes(
		attribute.String("model", v.cfg.Model),
		attribute.Int("image_bytes", len(req.Image)),
	))
	defer span.End()

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = v.cfg.APIKey
	}
	if apiKey == "" {
		span.RecordError(ErrNoCredential)
		span.SetStatus(codes.Error, ErrNoCredential.Error())
		return "", ErrNoCredential
	}

	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Image))

	request := openai.ChatCompletionRequest{
		Model:       v.cfg.Model,
		MaxTokens:   v.cfg.MaxTokens,
		Temperature: v.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: transcriptionInstruction(req.Context),
					},
				},
			},
		},
	}

	start := time.Now()
	resp, err := newCompletionClient(apiKey, v.cfg.BaseURL).CreateChatCompletion(ctx, request)
	if err != nil {
		visionFailures.WithLabelValues(v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("vision transcription: %w", err)
	}
	v.logger.Debug().Dur("elapsed", time.Since(start)).Str("context", req.Context).Msg("vision transcription completed")

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from vision endpoint")
		visionFailures.WithLabelValues(v.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func transcriptionInstruction(context string) string {
	ctxNote := ""
	if context != "" {
		ctxNote = fmt.Sprintf(" (%s)", context)
	}
	return fmt.Sprintf(
		"You are an expert OCR assistant specialised in reading handwritten text%s. "+
			"Carefully transcribe ALL text visible in this image exactly as written - "+
			"preserve question numbers, marks in brackets, and every answer word. "+
			"If something is unclear, make your best guess and mark it with [?]. "+
			"Output ONLY the transcribed text, no commentary.", ctxNote)
}
