package services

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/mmsu/prior-art-portal/models"
)

// ReportRenderer turns a completed analysis into a downloadable PDF document
type ReportRenderer interface {
	Render(submission *models.Submission, report *models.AnalysisReport, submitterName string) ([]byte, error)
}

// PDFReportRenderer renders the prior-art report with fpdf
type PDFReportRenderer struct {
	institutionName string
}

func NewPDFReportRenderer(institutionName string) ReportRenderer {
	if institutionName == "" {
		institutionName = "Technology Transfer Office"
	}
	return &PDFReportRenderer{institutionName: institutionName}
}

func (r *PDFReportRenderer) Render(submission *models.Submission, report *models.AnalysisReport, submitterName string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Prior Art Report %s", submission.SerialNumber), false)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, r.institutionName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Prior Art Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Submission summary
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Serial Number: %s", submission.SerialNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Submitted By: %s", submitterName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Submitted At: %s", submission.SubmittedAt.Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	if submission.AnalyzedAt != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Analyzed At: %s", submission.AnalyzedAt.Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	r.sectionTitle(pdf, "Technology Disclosure")
	r.paragraph(pdf, fmt.Sprintf("Title: %s", submission.Title))
	r.paragraph(pdf, submission.Description)
	if submission.Claims != nil && *submission.Claims != "" {
		r.paragraph(pdf, fmt.Sprintf("Claims: %s", *submission.Claims))
	}

	r.sectionTitle(pdf, "Prior Art References")
	if len(report.PriorArtReport) == 0 {
		r.paragraph(pdf, "No prior-art references were identified.")
	}
	for i, ref := range report.PriorArtReport {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, ref.Title), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		r.paragraph(pdf, ref.Summary)
		r.paragraph(pdf, fmt.Sprintf("Similarities: %s", ref.Similarities))
		r.paragraph(pdf, fmt.Sprintf("Differences: %s", ref.Differences))
		pdf.Ln(1)
	}

	r.sectionTitle(pdf, "Patentability Analysis")
	r.labeledParagraph(pdf, "Novelty", report.PatentabilityAnalysis.Novelty)
	r.labeledParagraph(pdf, "Inventive Step", report.PatentabilityAnalysis.InventiveStep)
	r.labeledParagraph(pdf, "Industrial Applicability", report.PatentabilityAnalysis.IndustrialApplicability)

	r.sectionTitle(pdf, "Recommendations")
	r.labeledParagraph(pdf, "Improvement Suggestions", report.Recommendations.ImprovementSuggestions)
	r.labeledParagraph(pdf, "Patent Filing Advice", report.Recommendations.PatentFilingAdvice)

	// Footer disclaimer
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "This report was generated automatically and does not constitute legal advice. Consult a qualified patent attorney before making filing decisions.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFReportRenderer) sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func (r *PDFReportRenderer) paragraph(pdf *fpdf.Fpdf, text string) {
	if text == "" {
		return
	}
	pdf.MultiCell(0, 5, text, "", "L", false)
	pdf.Ln(1)
}

func (r *PDFReportRenderer) labeledParagraph(pdf *fpdf.Fpdf, label, text string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	r.paragraph(pdf, text)
}
