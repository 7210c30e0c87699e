package dto

// ReportRequest asks for a PDF report of a previously returned evaluation.
// Model and Strictness default to the values embedded in Result.
type ReportRequest struct {
	Result     EvaluationResponse `json:"result" validate:"required"`
	Model      string             `json:"model"`
	Strictness string             `json:"strictness"`
}
