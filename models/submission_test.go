package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionReport(t *testing.T) {
	t.Run("decodes the stored payload", func(t *testing.T) {
		payload, err := json.Marshal(&AnalysisReport{
			PriorArtReport: []PriorArtReference{{Title: "US1234567"}},
			PatentabilityAnalysis: PatentabilityAnalysis{
				Novelty: "Appears novel",
			},
		})
		require.NoError(t, err)

		s := &Submission{Status: SubmissionStatusCompleted, AnalysisResults: payload}
		report, err := s.Report()
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.Equal(t, "US1234567", report.PriorArtReport[0].Title)
		assert.Equal(t, "Appears novel", report.PatentabilityAnalysis.Novelty)
	})

	t.Run("returns nil before analysis completes", func(t *testing.T) {
		s := &Submission{Status: SubmissionStatusPending}
		report, err := s.Report()
		require.NoError(t, err)
		assert.Nil(t, report)
	})

	t.Run("surfaces a corrupted payload", func(t *testing.T) {
		s := &Submission{AnalysisResults: json.RawMessage(`not json`)}
		_, err := s.Report()
		assert.Error(t, err)
	})
}

func TestSubmissionIsCompleted(t *testing.T) {
	assert.True(t, (&Submission{Status: SubmissionStatusCompleted}).IsCompleted())
	assert.False(t, (&Submission{Status: SubmissionStatusPending}).IsCompleted())
	assert.False(t, (&Submission{Status: SubmissionStatusProcessing}).IsCompleted())
}
