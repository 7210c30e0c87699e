package dto

import (
	"encoding/json"
	"time"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/models"
)

// ThresholdsRequest overrides the configured grade thresholds for one
// evaluation. Values are minimum percentages, scanned A through D.
type ThresholdsRequest struct {
	A float64 `json:"a" validate:"gte=0,lte=100"`
	B float64 `json:"b" validate:"gte=0,lte=100,ltfield=A"`
	C float64 `json:"c" validate:"gte=0,lte=100,ltfield=B"`
	D float64 `json:"d" validate:"gte=0,lte=100,ltfield=C"`
}

// EvaluationRequest is the JSON payload to grade one answer sheet against
// one question paper. It is immutable once submitted.
type EvaluationRequest struct {
	QuestionText string `json:"question_text" validate:"required"`
	AnswerText   string `json:"answer_text" validate:"required"`
	Strictness   string `json:"strictness" validate:"omitempty,oneof=Lenient Moderate Strict"`
	// PartialCredit defaults to true when omitted.
	PartialCredit *bool  `json:"partial_credit"`
	Model         string `json:"model"`
	// APIKey optionally overrides the server-side provider credential.
	APIKey     string             `json:"api_key"`
	Thresholds *ThresholdsRequest `json:"thresholds" validate:"omitempty"`
}

// QuestionResult is one graded question with the locally recomputed marks.
type QuestionResult struct {
	QuestionNumber   int      `json:"question_number"`
	Question         string   `json:"question"`
	MaxMarks         float64  `json:"max_marks"`
	StudentAnswer    string   `json:"student_answer"`
	Earned           float64  `json:"earned"`
	SimilarityScore  float64  `json:"similarity_score"`
	SimilarityBand   string   `json:"similarity_band"`
	Feedback         string   `json:"feedback"`
	KeyPointsCovered []string `json:"key_points_covered"`
	MissingPoints    []string `json:"missing_points"`
}

// EvaluationSummary is the presentation view of a result: grade letter,
// percentage, and credit counts. Derived, never persisted as authoritative.
type EvaluationSummary struct {
	Percentage    float64 `json:"percentage"`
	Grade         string  `json:"grade"`
	GradeName     string  `json:"grade_name"`
	FullCredit    int     `json:"full_credit"`
	PartialCredit int     `json:"partial_credit"`
	ZeroCredit    int     `json:"zero_credit"`
}

// EvaluationResponse is the reconciled grading outcome returned to clients.
// TotalEarned and TotalMax are always recomputed from Questions.
type EvaluationResponse struct {
	ID              uint              `json:"id,omitempty"`
	Model           string            `json:"model"`
	Strictness      string            `json:"strictness"`
	PartialCredit   bool              `json:"partial_credit"`
	TotalEarned     float64           `json:"total_earned"`
	TotalMax        float64           `json:"total_max"`
	OverallFeedback string            `json:"overall_feedback"`
	Questions       []QuestionResult  `json:"questions"`
	Summary         EvaluationSummary `json:"summary"`
	CreatedAt       time.Time         `json:"created_at,omitempty"`
}

// EvaluationListItem summarizes a persisted evaluation for history listings.
type EvaluationListItem struct {
	ID          uint      `json:"id"`
	Model       string    `json:"model"`
	Strictness  string    `json:"strictness"`
	TotalEarned float64   `json:"total_earned"`
	TotalMax    float64   `json:"total_max"`
	Percentage  float64   `json:"percentage"`
	Grade       string    `json:"grade"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEvaluationListItem converts a persisted evaluation into a list entry.
func NewEvaluationListItem(model models.Evaluation) EvaluationListItem {
	return EvaluationListItem{
		ID:          model.ID,
		Model:       model.Model,
		Strictness:  model.Strictness,
		TotalEarned: model.TotalEarned,
		TotalMax:    model.TotalMax,
		Percentage:  model.Percentage,
		Grade:       model.Grade,
		CreatedAt:   model.CreatedAt,
	}
}

// NewEvaluationResponseFromModel rebuilds the full response from a persisted
// evaluation, including the stored per-question breakdown.
func NewEvaluationResponseFromModel(model models.Evaluation) (EvaluationResponse, error) {
	var questions []QuestionResult
	if len(model.Questions) > 0 {
		if err := json.Unmarshal(model.Questions, &questions); err != nil {
			return EvaluationResponse{}, err
		}
	}

	return EvaluationResponse{
		ID:              model.ID,
		Model:           model.Model,
		Strictness:      model.Strictness,
		PartialCredit:   model.PartialCredit,
		TotalEarned:     model.TotalEarned,
		TotalMax:        model.TotalMax,
		OverallFeedback: model.OverallFeedback,
		Questions:       questions,
		CreatedAt:       model.CreatedAt,
	}, nil
}
