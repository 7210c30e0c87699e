package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/observability"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/report"
)

// ErrRendererUnavailable indicates no report renderer is wired into this
// deployment. Callers degrade gracefully instead of failing the whole app.
var ErrRendererUnavailable = errors.New("report renderer is not available")

// ReportService serializes an evaluation result into a downloadable PDF.
type ReportService interface {
	Generate(ctx context.Context, req dto.ReportRequest) ([]byte, error)
}

type reportService struct {
	renderer   report.Renderer
	validator  *validator.Validate
	thresholds config.GradeThresholds
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewReportService constructs the report generator. A nil renderer yields
// ErrRendererUnavailable on every call.
func NewReportService(renderer report.Renderer, validate *validator.Validate, thresholds config.GradeThresholds, logger zerolog.Logger) ReportService {
	return &reportService{
		renderer:   renderer,
		validator:  validate,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "report_service").Logger(),
		tracer:     otel.Tracer("github.com/smartgrade-ai/smartgrade-go-api/internal/service/report"),
	}
}

func (s *reportService) Generate(ctx context.Context, req dto.ReportRequest) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "report.generate")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return nil, err
	}

	if s.renderer == nil {
		observability.Reports().WithLabelValues("unavailable").Inc()
		span.RecordError(ErrRendererUnavailable)
		span.SetStatus(codes.Error, "renderer_unavailable")
		return nil, ErrRendererUnavailable
	}

	input := s.toReportInput(req)
	span.SetAttributes(attribute.Int("report.questions", len(input.Questions)))

	document, err := s.renderer.Render(input)
	if err != nil {
		observability.Reports().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "render_failed")
		return nil, fmt.Errorf("generate report: %w", err)
	}

	observability.Reports().WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("report.size_bytes", len(document)))

	return document, nil
}

func (s *reportService) toReportInput(req dto.ReportRequest) report.Input {
	result := req.Result

	summary := result.Summary
	if summary.Grade == "" {
		summary = BuildSummary(result.Questions, result.TotalEarned, result.TotalMax, s.thresholds)
	}

	model := req.Model
	if model == "" {
		model = result.Model
	}

	strictness := req.Strictness
	if strictness == "" {
		strictness = result.Strictness
	}

	questions := make([]report.Question, 0, len(result.Questions))
	for _, q := range result.Questions {
		questions = append(questions, report.Question{
			Number:           q.QuestionNumber,
			Question:         q.Question,
			MaxMarks:         q.MaxMarks,
			StudentAnswer:    q.StudentAnswer,
			Earned:           q.Earned,
			SimilarityScore:  q.SimilarityScore,
			Feedback:         q.Feedback,
			KeyPointsCovered: q.KeyPointsCovered,
			MissingPoints:    q.MissingPoints,
		})
	}

	return report.Input{
		TotalEarned:     result.TotalEarned,
		TotalMax:        result.TotalMax,
		Percentage:      summary.Percentage,
		Grade:           summary.Grade,
		GradeName:       summary.GradeName,
		OverallFeedback: result.OverallFeedback,
		Model:           model,
		Strictness:      strictness,
		Questions:       questions,
	}
}
