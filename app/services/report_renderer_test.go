package services

import (
	"testing"

	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderReport(t *testing.T) {
	renderer := NewPDFReportRenderer("Test University")

	analyzedAt := utils.UTCNow()
	submission := testSubmission()
	submission.SubmittedAt = utils.UTCNow()
	submission.AnalyzedAt = &analyzedAt
	submission.Claims = strPtr("1. A coating composition comprising microcapsules.")

	report := &models.AnalysisReport{
		PriorArtReport: []models.PriorArtReference{
			{
				Title:        "US1234567 Self-healing coating",
				Summary:      "A polymer coating with embedded microcapsules",
				Similarities: "Both use microcapsule rupture",
				Differences:  "No UV trigger",
			},
		},
		PatentabilityAnalysis: models.PatentabilityAnalysis{
			Novelty:                 "Appears novel",
			InventiveStep:           "Non-obvious",
			IndustrialApplicability: "Coatings industry",
		},
		Recommendations: models.Recommendations{
			ImprovementSuggestions: "Quantify healing efficiency",
			PatentFilingAdvice:     "Consider a provisional filing",
		},
	}

	content, err := renderer.Render(submission, report, "Maria Ivanova")
	require.NoError(t, err)
	require.True(t, len(content) > 1000)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestRenderReportWithoutReferences(t *testing.T) {
	renderer := NewPDFReportRenderer("")

	submission := testSubmission()
	submission.SubmittedAt = utils.UTCNow()

	content, err := renderer.Render(submission, &models.AnalysisReport{}, "Maria Ivanova")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content[:4]))
}
