package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/observability"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ocr"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/pdfdoc"
)

// Extraction methods reported to clients. OCR methods come from pkg/ocr.
const (
	MethodText       = "text"
	MethodDigitalPDF = "digital_pdf"
	MethodFailed     = "failed"
)

// localOCRNote is appended whenever the local engine produced the text.
const localOCRNote = "Local OCR engine used - provide an LLM API key for better handwriting accuracy."

// ErrFileTooLarge indicates the upload exceeded the configured limit.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

// DocumentReader abstracts the PDF backend used for text extraction and
// page rasterisation.
type DocumentReader interface {
	ExtractPages(data []byte) ([]string, error)
	RenderPages(data []byte, dpi int) ([]pdfdoc.RenderedPage, error)
}

// OCRChain runs the ordered OCR strategies over one bitmap.
type OCRChain interface {
	Run(ctx context.Context, img ocr.Image) ocr.Result
}

// ExtractionInput is one uploaded document to pull text from.
type ExtractionInput struct {
	FileName string
	Data     []byte
	// APIKey optionally overrides the configured credential for vision OCR.
	APIKey string
}

// ExtractionService turns uploaded documents into plain text. Extraction
// failures are downgraded to inline diagnostic text in the response, so the
// caller always receives a string; errors are reserved for request-level
// problems such as oversized uploads.
type ExtractionService interface {
	Extract(ctx context.Context, input ExtractionInput) (dto.ExtractionResponse, error)
}

type extractionService struct {
	reader        DocumentReader
	chain         OCRChain
	cache         *redis.Client
	cacheTTL      time.Duration
	maxBytes      int64
	textThreshold int
	renderDPI     int
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// ExtractionConfig bundles the tunables for the extraction pipeline.
type ExtractionConfig struct {
	MaxUploadMB          int
	DigitalTextThreshold int
	RenderDPI            int
	CacheTTL             time.Duration
}

// NewExtractionService constructs the extraction pipeline. The cache client
// may be nil, in which case caching is skipped.
func NewExtractionService(reader DocumentReader, chain OCRChain, cache *redis.Client, cfg ExtractionConfig, logger zerolog.Logger) ExtractionService {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	if cfg.DigitalTextThreshold <= 0 {
		cfg.DigitalTextThreshold = 50
	}
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 200
	}

	return &extractionService{
		reader:        reader,
		chain:         chain,
		cache:         cache,
		cacheTTL:      cfg.CacheTTL,
		maxBytes:      int64(cfg.MaxUploadMB) * 1024 * 1024,
		textThreshold: cfg.DigitalTextThreshold,
		renderDPI:     cfg.RenderDPI,
		logger:        logger.With().Str("component", "extraction_service").Logger(),
		tracer:        otel.Tracer("github.com/smartgrade-ai/smartgrade-go-api/internal/service/extraction"),
	}
}

func (s *extractionService) Extract(ctx context.Context, input ExtractionInput) (dto.ExtractionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "extraction.extract")
	defer span.End()

	span.SetAttributes(
		attribute.String("extraction.file_name", input.FileName),
		attribute.Int("extraction.size_bytes", len(input.Data)),
	)

	if int64(len(input.Data)) > s.maxBytes {
		span.RecordError(ErrFileTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.ExtractionResponse{}, ErrFileTooLarge
	}

	checksum := sha256.Sum256(input.Data)
	cacheKey := "extraction:" + hex.EncodeToString(checksum[:])

	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("extraction.cache_hit", true))
		return cached, nil
	}

	detected := mimetype.Detect(input.Data)
	span.SetAttributes(attribute.String("extraction.detected_mime", detected.String()))

	var response dto.ExtractionResponse
	switch {
	case detected.Is("application/pdf"):
		response = s.extractPDF(ctx, input)
	case strings.HasPrefix(detected.String(), "image/"):
		response = s.runOCR(ctx, input.Data, detected.String(), "", input.APIKey)
	case detected.Is("text/plain") || strings.HasPrefix(detected.String(), "text/"):
		text := string(input.Data)
		response = dto.ExtractionResponse{Text: text, Method: MethodText}
	default:
		response = dto.ExtractionResponse{
			Text:   fmt.Sprintf("[ERROR] Unsupported file type %s. Upload a PDF, an image, or a plain-text file.", detected.String()),
			Method: MethodFailed,
		}
	}

	response.Characters = utf8.RuneCountInString(response.Text)

	if response.Method != MethodFailed {
		s.toCache(ctx, cacheKey, response)
	}

	observability.Extractions().WithLabelValues(response.Method).Inc()
	span.SetAttributes(
		attribute.String("extraction.method", response.Method),
		attribute.Int("extraction.characters", response.Characters),
	)

	return response, nil
}

// extractPDF tries direct text extraction first and falls back to rendering
// pages for OCR when the document looks scanned.
func (s *extractionService) extractPDF(ctx context.Context, input ExtractionInput) dto.ExtractionResponse {
	pages, err := s.reader.ExtractPages(input.Data)
	if err != nil {
		return dto.ExtractionResponse{
			Text:   fmt.Sprintf("[PDF extraction error: %v]", err),
			Method: MethodFailed,
		}
	}

	trimmed := make([]string, 0, len(pages))
	for _, page := range pages {
		trimmed = append(trimmed, strings.TrimSpace(page))
	}
	fullText := strings.TrimSpace(strings.Join(trimmed, "\n"))

	if utf8.RuneCountInString(fullText) > s.textThreshold {
		return dto.ExtractionResponse{Text: fullText, Method: MethodDigitalPDF}
	}

	rendered, err := s.reader.RenderPages(input.Data, s.renderDPI)
	if err != nil {
		return dto.ExtractionResponse{
			Text:   fmt.Sprintf("[PDF extraction error: %v]", err),
			Method: MethodFailed,
		}
	}

	sections := make([]string, 0, len(rendered))
	method := ""
	note := ""
	for _, page := range rendered {
		pageContext := fmt.Sprintf("page %d of %d", page.Number, len(rendered))
		result := s.chain.Run(ctx, ocr.Image{
			Data:     page.JPEG,
			MIMEType: "image/jpeg",
			Context:  pageContext,
			APIKey:   input.APIKey,
		})
		if !result.Ok() {
			s.logger.Warn().Str("context", pageContext).Msg("no ocr strategy produced text for page")
			continue
		}

		sections = append(sections, fmt.Sprintf("--- Page %d ---\n%s", page.Number, result.Text))
		if method == "" {
			method = result.Method
		}
		if result.Method == ocr.MethodLocal {
			note = localOCRNote
		}
	}

	if len(sections) == 0 {
		return dto.ExtractionResponse{
			Text:   s.noOCRDiagnostic(input.APIKey),
			Method: MethodFailed,
		}
	}

	return dto.ExtractionResponse{
		Text:   strings.Join(sections, "\n\n"),
		Method: method,
		Note:   note,
	}
}

// runOCR pushes a single raw image through the strategy chain.
func (s *extractionService) runOCR(ctx context.Context, data []byte, mime, imageContext, apiKey string) dto.ExtractionResponse {
	result := s.chain.Run(ctx, ocr.Image{
		Data:     data,
		MIMEType: mime,
		Context:  imageContext,
		APIKey:   apiKey,
	})
	if !result.Ok() {
		return dto.ExtractionResponse{
			Text:   s.noOCRDiagnostic(apiKey),
			Method: MethodFailed,
		}
	}

	response := dto.ExtractionResponse{Text: result.Text, Method: result.Method}
	if result.Method == ocr.MethodLocal {
		response.Note = localOCRNote
	}

	return response
}

func (s *extractionService) noOCRDiagnostic(apiKey string) string {
	if apiKey == "" {
		return "[ERROR] No OCR method available. Provide an LLM API key for vision-based handwriting recognition, or install the Tesseract engine for local OCR."
	}
	return "[ERROR] No text could be extracted from this document."
}

func (s *extractionService) fromCache(ctx context.Context, key string) (dto.ExtractionResponse, bool) {
	if s.cache == nil {
		return dto.ExtractionResponse{}, false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read extraction cache")
		}
		return dto.ExtractionResponse{}, false
	}

	var response dto.ExtractionResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		return dto.ExtractionResponse{}, false
	}

	response.Cached = true
	return response, true
}

func (s *extractionService) toCache(ctx context.Context, key string, response dto.ExtractionResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store extraction cache")
	}
}
