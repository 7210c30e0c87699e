package ai

import (
	"context"
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

var (
	gradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartgrade",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of grading chat-completion requests",
	}, []string{"model"})

	gradingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartgrade",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of failed grading chat-completion requests",
	}, []string{"model"})
)

// ClientConfig defines configuration options for the chat-completion grader.
type ClientConfig struct {
	// APIKey is the default provider credential. Requests may override it.
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint, e.g. Groq.
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// Client implements Grader against an OpenAI-compatible chat-completion API.
type Client struct {
	cfg    ClientConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewClient builds a grading client using the provided configuration.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
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

	return &Client{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/smartgrade-ai/smartgrade-go-api/pkg/ai/grader"),
		logger: logger,
	}
}

// Complete sends the grading prompt and returns the raw model response text.
func (c *Client) Complete(parent context.Context, req GradeRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	ctx, span := c.tracer.Start(parent, "ai.grade", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	if apiKey == "" {
		span.RecordError(ErrNoCredential)
		span.SetStatus(codes.Error, ErrNoCredential.Error())
		return "", ErrNoCredential
	}

	request := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	}

	start := time.Now()
	resp, err := newCompletionClient(apiKey, c.cfg.BaseURL).CreateChatCompletion(ctx, request)
	gradingDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		gradingFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("grading completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from completion endpoint")
		gradingFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	span.SetAttributes(attribute.Int("response_chars", len(content)))

	return content, nil
}

func newCompletionClient(apiKey, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}
