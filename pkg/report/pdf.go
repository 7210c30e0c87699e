// Package report renders evaluation results into a downloadable PDF document.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Question is one graded question in the report.
type Question struct {
	Number           int
	Question         string
	MaxMarks         float64
	StudentAnswer    string
	Earned           float64
	SimilarityScore  float64
	Feedback         string
	KeyPointsCovered []string
	MissingPoints    []string
}

// Input carries everything the report needs: the evaluation outcome plus the
// model and strictness labels shown in the summary table.
type Input struct {
	TotalEarned     float64
	TotalMax        float64
	Percentage      float64
	Grade           string
	GradeName       string
	OverallFeedback string
	Model           string
	Strictness      string
	Questions       []Question
}

// Renderer produces a binary report document from an evaluation.
type Renderer interface {
	Render(in Input) ([]byte, error)
}

// PDFRenderer implements Renderer on top of fpdf.
type PDFRenderer struct {
	// questionsPerPage bounds page density; a page break is inserted after
	// this many question tables.
	questionsPerPage int
}

// NewPDFRenderer constructs the PDF report renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{questionsPerPage: 2}
}

// Render implements Renderer.
func (r *PDFRenderer) Render(in Input) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTopMargin(14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(30, 58, 95)
	pdf.CellFormat(0, 12, tr("SmartGrade AI - Evaluation Report"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	summary := [][2]string{
		{"Score", fmt.Sprintf("%.1f / %.1f", in.TotalEarned, in.TotalMax)},
		{"Percentage", fmt.Sprintf("%.1f%%", in.Percentage)},
		{"Grade", fmt.Sprintf("%s - %s", in.Grade, in.GradeName)},
		{"Model", in.Model},
		{"Strictness", in.Strictness},
	}
	r.keyValueTable(pdf, tr, summary, 50)
	pdf.Ln(6)

	r.heading(pdf, tr, "Overall Feedback")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 5, tr(in.OverallFeedback), "", "L", false)
	pdf.Ln(4)

	r.heading(pdf, tr, "Question-wise Analysis")
	pdf.Ln(2)

	for i, q := range in.Questions {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Q%d. %s", i+1, truncate(q.Question, 100))), "", "L", false)
		pdf.Ln(1)

		rows := [][2]string{
			{"Marks", fmt.Sprintf("%.1f / %.1f", q.Earned, q.MaxMarks)},
			{"Similarity", fmt.Sprintf("%.0f%%", q.SimilarityScore)},
			{"Feedback", q.Feedback},
		}
		if len(q.KeyPointsCovered) > 0 {
			rows = append(rows, [2]string{"Covered", strings.Join(q.KeyPointsCovered, ", ")})
		}
		if len(q.MissingPoints) > 0 {
			rows = append(rows, [2]string{"Missing", strings.Join(q.MissingPoints, ", ")})
		}
		r.keyValueTable(pdf, tr, rows, 30)
		pdf.Ln(4)

		if (i+1)%r.questionsPerPage == 0 && i+1 < len(in.Questions) {
			pdf.AddPage()
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf report: %w", err)
	}

	return buf.Bytes(), nil
}

func (r *PDFRenderer) heading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(46, 117, 182)
	pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
}

func (r *PDFRenderer) keyValueTable(pdf *fpdf.Fpdf, tr func(string) string, rows [][2]string, labelWidth float64) {
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	valueWidth := pageWidth - left - right - labelWidth

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 242, 255)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(labelWidth, 7, tr(row[0]), "1", 0, "L", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(valueWidth, 7, tr(row[1]), "1", "L", false)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
