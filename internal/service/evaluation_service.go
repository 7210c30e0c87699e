package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/models"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/observability"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/repository"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ai"
)

// Strictness modes accepted by the evaluator.
const (
	StrictnessLenient  = "Lenient"
	StrictnessModerate = "Moderate"
	StrictnessStrict   = "Strict"
)

// similarityCutoff is the pass/fail boundary used when partial credit is off.
const similarityCutoff = 70.0

// defaultMaxMarks is assumed when the model omits a question's mark value.
const defaultMaxMarks = 5.0

// ErrMalformedModelOutput indicates the model response was not the expected
// JSON shape. Terminal for the request; there is no retry.
var ErrMalformedModelOutput = errors.New("model returned malformed evaluation output")

var strictnessRules = map[string]string{
	StrictnessLenient: `- Award 80-100% for answers showing basic understanding, even if incomplete
- Award 60-80% for partially correct answers with some key concepts
- Award 40-60% for vague answers that touch on the topic
- Only give 0-40% for completely wrong or off-topic answers`,

	StrictnessModerate: `- Award 80-100% only for well-explained answers covering main concepts
- Award 60-80% for correct but shallow explanations
- Award 40-60% for incomplete answers missing key points
- Award 20-40% for minimal understanding
- Give 0-20% for wrong or off-topic answers`,

	StrictnessStrict: `- Award 80-100% ONLY for complete, precise, well-detailed answers
- Award 60-80% for mostly correct but lacking some depth or examples
- Award 40-60% for partially correct with significant gaps
- Award 20-40% for weak understanding with major errors
- Give 0-20% for incomplete or incorrect answers`,
}

var codeFencePattern = regexp.MustCompile("```(?:json)?")

// resultSchema guards against schema-violating model output before any field
// is trusted. Only the questions array is mandatory; absent numeric fields
// fall back to the evaluator defaults.
var resultSchema = jsonschema.MustCompileString("evaluation_result.json", `{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"total_earned": {"type": "number"},
		"total_max": {"type": "number"},
		"overall_feedback": {"type": "string"},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"question_number": {"type": "integer"},
					"question": {"type": "string"},
					"max_marks": {"type": "number", "minimum": 0},
					"student_answer": {"type": "string"},
					"earned": {"type": "number"},
					"similarity_score": {"type": "number"},
					"feedback": {"type": "string"},
					"key_points_covered": {"type": "array", "items": {"type": "string"}},
					"missing_points": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`)

// EvaluationService grades an answer sheet against a question paper.
type EvaluationService interface {
	Evaluate(ctx context.Context, req dto.EvaluationRequest) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	grader    ai.Grader
	repo      repository.EvaluationRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cfg       config.Config
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewEvaluationService constructs the evaluator. The repository may be nil;
// history persistence is then skipped.
func NewEvaluationService(grader ai.Grader, repo repository.EvaluationRepository, validate *validator.Validate, cfg config.Config, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		grader:    grader,
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cfg:       cfg,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/smartgrade-ai/smartgrade-go-api/internal/service/evaluation"),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, req dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.grade")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.EvaluationResponse{}, err
	}

	strictness := req.Strictness
	if strictness == "" {
		strictness = StrictnessModerate
	}

	partialCredit := true
	if req.PartialCredit != nil {
		partialCredit = *req.PartialCredit
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.cfg.GradingModel
	}

	thresholds := s.cfg.Thresholds
	if req.Thresholds != nil {
		thresholds = config.GradeThresholds{
			A: req.Thresholds.A,
			B: req.Thresholds.B,
			C: req.Thresholds.C,
			D: req.Thresholds.D,
		}
	}

	span.SetAttributes(
		attribute.String("evaluation.model", model),
		attribute.String("evaluation.strictness", strictness),
		attribute.Bool("evaluation.partial_credit", partialCredit),
	)

	prompt := buildGradingPrompt(strictness, partialCredit, req.QuestionText, req.AnswerText)

	raw, err := s.grader.Complete(ctx, ai.GradeRequest{
		Model:  model,
		Prompt: prompt,
		APIKey: req.APIKey,
	})
	if err != nil {
		observability.Evaluations().WithLabelValues(model, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_call_failed")
		return dto.EvaluationResponse{}, err
	}

	payload, err := parseModelPayload(raw)
	if err != nil {
		observability.Evaluations().WithLabelValues(model, "malformed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed_model_output")
		return dto.EvaluationResponse{}, err
	}

	response := s.reconcile(payload, partialCredit)
	response.Model = model
	response.Strictness = strictness
	response.PartialCredit = partialCredit
	response.Summary = BuildSummary(response.Questions, response.TotalEarned, response.TotalMax, thresholds)

	s.persist(ctx, &response)

	observability.Evaluations().WithLabelValues(model, "ok").Inc()
	span.SetAttributes(
		attribute.Int("evaluation.questions", len(response.Questions)),
		attribute.Float64("evaluation.total_earned", response.TotalEarned),
		attribute.Float64("evaluation.total_max", response.TotalMax),
	)

	return response, nil
}

// reconcile discards the model's self-reported earned marks and totals, and
// recomputes them deterministically from similarity scores and max marks.
// Applying it twice to the same payload yields the same result.
func (s *evaluationService) reconcile(payload modelPayload, partialCredit bool) dto.EvaluationResponse {
	questions := make([]dto.QuestionResult, 0, len(payload.Questions))
	totalEarned := 0.0
	totalMax := 0.0

	for i, q := range payload.Questions {
		maxMarks := defaultMaxMarks
		if q.MaxMarks != nil {
			maxMarks = *q.MaxMarks
		}

		similarity := clamp(q.SimilarityScore, 0, 100)

		var earned float64
		if partialCredit {
			earned = roundTo1(similarity / 100 * maxMarks)
		} else if similarity >= similarityCutoff {
			earned = maxMarks
		}

		number := q.QuestionNumber
		if number == 0 {
			number = i + 1
		}

		questions = append(questions, dto.QuestionResult{
			QuestionNumber:   number,
			Question:         s.clean(q.Question),
			MaxMarks:         maxMarks,
			StudentAnswer:    s.clean(q.StudentAnswer),
			Earned:           earned,
			SimilarityScore:  similarity,
			SimilarityBand:   SimilarityBand(similarity),
			Feedback:         s.clean(q.Feedback),
			KeyPointsCovered: s.cleanAll(q.KeyPointsCovered),
			MissingPoints:    s.cleanAll(q.MissingPoints),
		})

		totalEarned += earned
		totalMax += maxMarks
	}

	return dto.EvaluationResponse{
		TotalEarned:     roundTo1(totalEarned),
		TotalMax:        totalMax,
		OverallFeedback: s.clean(payload.OverallFeedback),
		Questions:       questions,
	}
}

// persist stores the evaluation for history browsing. Failures are logged
// and never fail the request.
func (s *evaluationService) persist(ctx context.Context, response *dto.EvaluationResponse) {
	if s.repo == nil {
		return
	}

	questionsJSON, err := json.Marshal(response.Questions)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode questions for history")
		return
	}

	record := models.Evaluation{
		Model:           response.Model,
		Strictness:      response.Strictness,
		PartialCredit:   response.PartialCredit,
		TotalEarned:     response.TotalEarned,
		TotalMax:        response.TotalMax,
		Percentage:      response.Summary.Percentage,
		Grade:           response.Summary.Grade,
		OverallFeedback: response.OverallFeedback,
		Questions:       datatypes.JSON(questionsJSON),
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist evaluation history")
		return
	}

	response.ID = record.ID
	response.CreatedAt = record.CreatedAt
}

func (s *evaluationService) clean(text string) string {
	return html.UnescapeString(s.sanitizer.Sanitize(strings.TrimSpace(text)))
}

func (s *evaluationService) cleanAll(items []string) []string {
	if items == nil {
		return nil
	}
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if c := s.clean(item); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}

type modelQuestion struct {
	QuestionNumber   int      `json:"question_number"`
	Question         string   `json:"question"`
	MaxMarks         *float64 `json:"max_marks"`
	StudentAnswer    string   `json:"student_answer"`
	Earned           float64  `json:"earned"`
	SimilarityScore  float64  `json:"similarity_score"`
	Feedback         string   `json:"feedback"`
	KeyPointsCovered []string `json:"key_points_covered"`
	MissingPoints    []string `json:"missing_points"`
}

type modelPayload struct {
	TotalEarned     float64         `json:"total_earned"`
	TotalMax        float64         `json:"total_max"`
	OverallFeedback string          `json:"overall_feedback"`
	Questions       []modelQuestion `json:"questions"`
}

// parseModelPayload treats the model response as untrusted input: it strips
// Markdown code fences, parses JSON, and validates the document against the
// result schema before decoding into typed structs.
func parseModelPayload(raw string) (modelPayload, error) {
	cleaned := codeFencePattern.ReplaceAllString(raw, "")
	cleaned = strings.Trim(strings.TrimSpace(cleaned), "`")
	cleaned = strings.TrimSpace(cleaned)

	var document interface{}
	if err := json.Unmarshal([]byte(cleaned), &document); err != nil {
		return modelPayload{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	if err := resultSchema.Validate(document); err != nil {
		return modelPayload{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	var payload modelPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return modelPayload{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	return payload, nil
}

func buildGradingPrompt(strictness string, partialCredit bool, questionPaper, answerSheet string) string {
	partialNote := "Award FULL marks if similarity >= 70%, otherwise give ZERO."
	if partialCredit {
		partialNote = "Award partial marks proportionally based on similarity score."
	}

	builder := strings.Builder{}
	builder.WriteString("You are an expert examiner evaluating student answers.\n\n")
	builder.WriteString("STRICTNESS MODE: ")
	builder.WriteString(strictness)
	builder.WriteString("\n")
	builder.WriteString(strictnessRules[strictness])
	builder.WriteString("\n\nPARTIAL CREDIT: ")
	builder.WriteString(partialNote)
	builder.WriteString("\n\nQUESTION PAPER:\n")
	builder.WriteString(questionPaper)
	builder.WriteString("\n\nSTUDENT ANSWER SHEET:\n")
	builder.WriteString(answerSheet)
	builder.WriteString("\n\nINSTRUCTIONS:\n")
	builder.WriteString("1. Parse questions (detect marks like \"(5 marks)\" or \"[3]\", default 5)\n")
	builder.WriteString("2. Match each question to student's answer\n")
	builder.WriteString("3. Assign similarity_score (0-100) following the ")
	builder.WriteString(strictness)
	builder.WriteString(" rules above\n")
	builder.WriteString("4. Calculate marks: (similarity_score / 100) x max_marks\n\n")
	builder.WriteString("Respond ONLY with valid JSON - no markdown, no extra text:\n\n")
	builder.WriteString(`{
  "total_earned": <number>,
  "total_max": <number>,
  "overall_feedback": "<2-3 sentence summary>",
  "questions": [{
    "question_number": 1,
    "question": "<text>",
    "max_marks": <number>,
    "student_answer": "<text>",
    "earned": <decimal>,
    "similarity_score": <0-100>,
    "feedback": "<one line>",
    "key_points_covered": ["<pt>"],
    "missing_points": ["<pt>"]
  }]
}`)

	return builder.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
