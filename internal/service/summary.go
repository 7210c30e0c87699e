package service

import (
	"math"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
)

// Similarity bands used for per-question colour classification.
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
)

var gradeNames = map[string]string{
	"A": "Excellent",
	"B": "Good",
	"C": "Average",
	"D": "Pass",
	"F": "Fail",
}

// GradeFor scans the thresholds in descending order and returns the first
// letter whose minimum percentage is met, falling back to F.
func GradeFor(percentage float64, t config.GradeThresholds) (string, string) {
	scale := []struct {
		min    float64
		letter string
	}{
		{t.A, "A"},
		{t.B, "B"},
		{t.C, "C"},
		{t.D, "D"},
	}

	for _, step := range scale {
		if percentage >= step.min {
			return step.letter, gradeNames[step.letter]
		}
	}

	return "F", gradeNames["F"]
}

// SimilarityBand classifies a similarity score for presentation:
// high >= 70, medium >= 40, low otherwise.
func SimilarityBand(score float64) string {
	switch {
	case score >= 70:
		return BandHigh
	case score >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// BuildSummary derives the presentation summary from a reconciled result.
// It holds no state and may be reapplied to the same result at any time.
func BuildSummary(questions []dto.QuestionResult, totalEarned, totalMax float64, t config.GradeThresholds) dto.EvaluationSummary {
	percentage := 0.0
	if totalMax > 0 {
		percentage = roundTo1(totalEarned / totalMax * 100)
	}

	grade, gradeName := GradeFor(percentage, t)

	summary := dto.EvaluationSummary{
		Percentage: percentage,
		Grade:      grade,
		GradeName:  gradeName,
	}

	for _, q := range questions {
		switch {
		case q.Earned == 0:
			summary.ZeroCredit++
		case q.Earned >= q.MaxMarks:
			summary.FullCredit++
		default:
			summary.PartialCredit++
		}
	}

	return summary
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
