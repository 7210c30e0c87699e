package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/models"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ai"
)

type graderStub struct {
	response string
	err      error
	requests []ai.GradeRequest
}

func (g *graderStub) Complete(_ context.Context, req ai.GradeRequest) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

type evalRepoStub struct {
	created []*models.Evaluation
	err     error
}

func (r *evalRepoStub) Create(_ context.Context, evaluation *models.Evaluation) error {
	if r.err != nil {
		return r.err
	}
	evaluation.ID = uint(len(r.created) + 1)
	r.created = append(r.created, evaluation)
	return nil
}

func (r *evalRepoStub) List(_ context.Context, _ int) ([]models.Evaluation, error) {
	return nil, nil
}

func (r *evalRepoStub) GetByID(_ context.Context, _ uint) (models.Evaluation, error) {
	return models.Evaluation{}, nil
}

func testConfig() config.Config {
	return config.Config{
		GradingModel: "llama-3.3-70b-versatile",
		Thresholds:   defaultThresholds(),
	}
}

func newTestEvaluator(grader ai.Grader, repo *evalRepoStub) EvaluationService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if repo == nil {
		return NewEvaluationService(grader, nil, validate, testConfig(), testLogger())
	}
	return NewEvaluationService(grader, repo, validate, testConfig(), testLogger())
}

const twoQuestionPayload = `{
	"total_earned": 99,
	"total_max": 99,
	"overall_feedback": "Solid effort overall.",
	"questions": [
		{
			"question_number": 1,
			"question": "Define osmosis.",
			"max_marks": 5,
			"student_answer": "Movement of water across a membrane.",
			"earned": 5,
			"similarity_score": 80,
			"feedback": "Good definition.",
			"key_points_covered": ["membrane"],
			"missing_points": ["concentration gradient"]
		},
		{
			"question_number": 2,
			"question": "State Ohm's law.",
			"max_marks": 10,
			"student_answer": "V = IR",
			"earned": 10,
			"similarity_score": 45,
			"feedback": "Formula only, no explanation.",
			"key_points_covered": [],
			"missing_points": ["explanation"]
		}
	]
}`

func baseRequest() dto.EvaluationRequest {
	return dto.EvaluationRequest{
		QuestionText: "1. Define osmosis. (5 marks)\n2. State Ohm's law. (10 marks)",
		AnswerText:   "1. Movement of water across a membrane.\n2. V = IR",
	}
}

func TestEvaluateRecomputesMarksFromSimilarity(t *testing.T) {
	grader := &graderStub{response: twoQuestionPayload}
	svc := newTestEvaluator(grader, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)

	// The model's self-reported totals (99/99) must be ignored.
	require.Equal(t, 8.5, result.TotalEarned)
	require.Equal(t, 15.0, result.TotalMax)
	require.Len(t, result.Questions, 2)
	require.Equal(t, 4.0, result.Questions[0].Earned)
	require.Equal(t, 4.5, result.Questions[1].Earned)
	require.Equal(t, BandHigh, result.Questions[0].SimilarityBand)
	require.Equal(t, BandMedium, result.Questions[1].SimilarityBand)
	require.Equal(t, "Solid effort overall.", result.OverallFeedback)
}

func TestEvaluateDefaults(t *testing.T) {
	grader := &graderStub{response: twoQuestionPayload}
	svc := newTestEvaluator(grader, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, StrictnessModerate, result.Strictness)
	require.True(t, result.PartialCredit)
	require.Equal(t, "llama-3.3-70b-versatile", result.Model)

	require.Len(t, grader.requests, 1)
	require.Equal(t, "llama-3.3-70b-versatile", grader.requests[0].Model)
}

func TestEvaluatePromptContents(t *testing.T) {
	grader := &graderStub{response: twoQuestionPayload}
	svc := newTestEvaluator(grader, nil)

	req := baseRequest()
	req.Strictness = StrictnessStrict
	_, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, grader.requests, 1)
	prompt := grader.requests[0].Prompt
	require.Contains(t, prompt, "STRICTNESS MODE: Strict")
	require.Contains(t, prompt, strictnessRules[StrictnessStrict])
	require.Contains(t, prompt, "Award partial marks proportionally")
	require.Contains(t, prompt, req.QuestionText)
	require.Contains(t, prompt, req.AnswerText)
	require.Contains(t, prompt, "Respond ONLY with valid JSON")
}

func TestEvaluatePartialCreditProportional(t *testing.T) {
	payload := `{
		"questions": [{"question_number": 1, "max_marks": 5, "similarity_score": 60}]
	}`

	svc := newTestEvaluator(&graderStub{response: payload}, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Equal(t, 3.0, result.Questions[0].Earned)
	require.Equal(t, 3.0, result.TotalEarned)
	require.Equal(t, 5.0, result.TotalMax)
}

func TestEvaluateAllOrNothingBoundary(t *testing.T) {
	payload := `{
		"questions": [
			{"question_number": 1, "max_marks": 5, "similarity_score": 70},
			{"question_number": 2, "max_marks": 5, "similarity_score": 69.9}
		]
	}`

	off := false
	req := baseRequest()
	req.PartialCredit = &off

	grader := &graderStub{response: payload}
	svc := newTestEvaluator(grader, nil)

	result, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 5.0, result.Questions[0].Earned)
	require.Equal(t, 0.0, result.Questions[1].Earned)
	require.Equal(t, 5.0, result.TotalEarned)
	require.Contains(t, grader.requests[0].Prompt, "Award FULL marks if similarity >= 70%, otherwise give ZERO.")
}

func TestEvaluateClampsSimilarity(t *testing.T) {
	payload := `{
		"questions": [
			{"question_number": 1, "max_marks": 10, "similarity_score": 150},
			{"question_number": 2, "max_marks": 10, "similarity_score": -5}
		]
	}`

	svc := newTestEvaluator(&graderStub{response: payload}, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Questions[0].SimilarityScore)
	require.Equal(t, 10.0, result.Questions[0].Earned)
	require.Equal(t, 0.0, result.Questions[1].SimilarityScore)
	require.Equal(t, 0.0, result.Questions[1].Earned)
}

func TestEvaluateDefaultsMaxMarksAndQuestionNumbers(t *testing.T) {
	payload := `{
		"questions": [
			{"similarity_score": 100},
			{"similarity_score": 50}
		]
	}`

	svc := newTestEvaluator(&graderStub{response: payload}, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Equal(t, 1, result.Questions[0].QuestionNumber)
	require.Equal(t, 2, result.Questions[1].QuestionNumber)
	require.Equal(t, 5.0, result.Questions[0].MaxMarks)
	require.Equal(t, 5.0, result.Questions[0].Earned)
	require.Equal(t, 2.5, result.Questions[1].Earned)
	require.Equal(t, 10.0, result.TotalMax)
}

func TestEvaluateStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + twoQuestionPayload + "\n```"
	svc := newTestEvaluator(&graderStub{response: fenced}, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, result.Questions, 2)
}

func TestEvaluateMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"not json":          "the student did well, roughly 8/10",
		"missing questions": `{"total_earned": 5}`,
		"wrong type":        `{"questions": "none"}`,
	}

	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestEvaluator(&graderStub{response: response}, nil)

			result, err := svc.Evaluate(context.Background(), baseRequest())
			require.ErrorIs(t, err, ErrMalformedModelOutput)
			require.Zero(t, result)
		})
	}
}

func TestEvaluateGraderFailurePassesThrough(t *testing.T) {
	wantErr := errors.New("upstream timeout")
	svc := newTestEvaluator(&graderStub{err: wantErr}, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.ErrorIs(t, err, wantErr)
	require.Zero(t, result)
}

func TestEvaluateValidation(t *testing.T) {
	svc := newTestEvaluator(&graderStub{response: twoQuestionPayload}, nil)

	_, err := svc.Evaluate(context.Background(), dto.EvaluationRequest{AnswerText: "something"})
	require.Error(t, err)

	_, err = svc.Evaluate(context.Background(), dto.EvaluationRequest{QuestionText: "something"})
	require.Error(t, err)

	req := baseRequest()
	req.Strictness = "Brutal"
	_, err = svc.Evaluate(context.Background(), req)
	require.Error(t, err)
}

func TestEvaluateDeterministic(t *testing.T) {
	svc := newTestEvaluator(&graderStub{response: twoQuestionPayload}, nil)

	first, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)

	second, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEvaluateSanitizesModelText(t *testing.T) {
	payload := `{
		"questions": [{
			"question_number": 1,
			"question": "<script>alert(1)</script>Define osmosis.",
			"max_marks": 5,
			"similarity_score": 60,
			"feedback": "  <b>Decent</b> answer  ",
			"key_points_covered": ["<img src=x>", "membrane"],
			"missing_points": []
		}]
	}`

	svc := newTestEvaluator(&graderStub{response: payload}, nil)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Equal(t, "Define osmosis.", result.Questions[0].Question)
	require.Equal(t, "Decent answer", result.Questions[0].Feedback)
	require.Equal(t, []string{"membrane"}, result.Questions[0].KeyPointsCovered)
}

func TestEvaluatePersistsHistory(t *testing.T) {
	repo := &evalRepoStub{}
	svc := newTestEvaluator(&graderStub{response: twoQuestionPayload}, repo)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Equal(t, uint(1), result.ID)
	require.Len(t, repo.created, 1)
	require.Equal(t, result.TotalEarned, repo.created[0].TotalEarned)
	require.Equal(t, result.Summary.Grade, repo.created[0].Grade)
	require.NotEmpty(t, repo.created[0].Questions)
}

func TestEvaluatePersistFailureDoesNotFailRequest(t *testing.T) {
	repo := &evalRepoStub{err: errors.New("db down")}
	svc := newTestEvaluator(&graderStub{response: twoQuestionPayload}, repo)

	result, err := svc.Evaluate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Zero(t, result.ID)
	require.Len(t, result.Questions, 2)
}

func TestEvaluateCustomThresholds(t *testing.T) {
	svc := newTestEvaluator(&graderStub{response: twoQuestionPayload}, nil)

	req := baseRequest()
	req.Thresholds = &dto.ThresholdsRequest{A: 50, B: 40, C: 30, D: 20}

	result, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)
	// 8.5/15 = 56.7% clears the lowered A cutoff.
	require.Equal(t, "A", result.Summary.Grade)
}
