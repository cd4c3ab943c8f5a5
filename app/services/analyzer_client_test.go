package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mmsu/prior-art-portal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmission() *models.Submission {
	return &models.Submission{
		SerialNumber: "PA-20260828-9F3A1C2B",
		Title:        "Self-healing polymer coating",
		Description:  "A coating that repairs microcracks using embedded microcapsules.",
	}
}

func chatResponse(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(payload)
}

func TestPerplexityClientAnalyze(t *testing.T) {
	reportJSON := `{
		"prior_art_report": [{"title": "US1234567", "summary": "A coating", "similarities": "Both self-heal", "differences": "No UV trigger"}],
		"patentability_analysis": {"novelty": "Likely novel", "inventive_step": "Plausible", "industrial_applicability": "Yes"},
		"recommendations": {"improvement_suggestions": "Add data", "patent_filing_advice": "File provisionally"}
	}`

	t.Run("parses a plain JSON response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req chatCompletionReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 2)
			assert.Contains(t, req.Messages[1].Content, "Self-healing polymer coating")

			fmt.Fprint(w, chatResponse(reportJSON))
		}))
		defer server.Close()

		client := NewPerplexityClient(server.URL, "test-key", "sonar-pro", 5*time.Second)
		report, err := client.Analyze(context.Background(), testSubmission())
		require.NoError(t, err)
		require.Len(t, report.PriorArtReport, 1)
		assert.Equal(t, "US1234567", report.PriorArtReport[0].Title)
		assert.Equal(t, "Likely novel", report.PatentabilityAnalysis.Novelty)
	})

	t.Run("strips markdown fences around the JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatResponse("```json\n"+reportJSON+"\n```"))
		}))
		defer server.Close()

		client := NewPerplexityClient(server.URL, "test-key", "", 5*time.Second)
		report, err := client.Analyze(context.Background(), testSubmission())
		require.NoError(t, err)
		assert.Equal(t, "File provisionally", report.Recommendations.PatentFilingAdvice)
	})

	t.Run("fails on a non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewPerplexityClient(server.URL, "test-key", "", 5*time.Second)
		_, err := client.Analyze(context.Background(), testSubmission())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("fails when the output has no JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatResponse("I could not produce a report."))
		}))
		defer server.Close()

		client := NewPerplexityClient(server.URL, "test-key", "", 5*time.Second)
		_, err := client.Analyze(context.Background(), testSubmission())
		assert.Error(t, err)
	})

	t.Run("fails without an API key", func(t *testing.T) {
		client := NewPerplexityClient("https://api.perplexity.ai", "", "", 5*time.Second)
		_, err := client.Analyze(context.Background(), testSubmission())
		assert.Error(t, err)
	})
}

func TestParseAnalyzerOutputTruncation(t *testing.T) {
	refs := make([]string, 0, models.MaxPriorArtReferences+3)
	for i := 0; i < models.MaxPriorArtReferences+3; i++ {
		refs = append(refs, fmt.Sprintf(`{"title": "Ref %d", "summary": "s", "similarities": "s", "differences": "d"}`, i))
	}
	content := fmt.Sprintf(`{"prior_art_report": [%s], "patentability_analysis": {}, "recommendations": {}}`, strings.Join(refs, ","))

	report, err := parseAnalyzerOutput(content)
	require.NoError(t, err)
	assert.Len(t, report.PriorArtReport, models.MaxPriorArtReferences)
}

func TestBuildAnalyzerPrompt(t *testing.T) {
	submission := testSubmission()
	submission.Claims = strPtr("1. A coating composition comprising microcapsules.")
	submission.Inventors = strPtr("M. Ivanova")

	longText := strings.Repeat("a", 30000)
	submission.FileText = &longText

	prompt := buildAnalyzerPrompt(submission)
	assert.Contains(t, prompt, submission.Title)
	assert.Contains(t, prompt, "1. A coating composition")
	assert.Contains(t, prompt, "M. Ivanova")
	assert.Less(t, len(prompt), 25000, "uploaded document text is truncated")
}

func TestBuildAnalyzerPromptMultibyteTruncation(t *testing.T) {
	submission := testSubmission()
	// Each rune is two bytes, so a naive byte cut would split one in half.
	multibyte := strings.Repeat("é", 10001)
	submission.FileText = &multibyte

	prompt := buildAnalyzerPrompt(submission)
	assert.True(t, utf8.ValidString(prompt), "truncation must not split a rune")
	assert.Less(t, len(prompt), 21000)
}

func TestFallbackReport(t *testing.T) {
	report := FallbackReport(testSubmission())

	require.Len(t, report.PriorArtReport, 1)
	assert.Equal(t, "Automated prior-art search unavailable", report.PriorArtReport[0].Title)
	assert.Contains(t, report.PriorArtReport[0].Summary, "PA-20260828-9F3A1C2B")
	assert.NotEmpty(t, report.PatentabilityAnalysis.Novelty)
	assert.NotEmpty(t, report.Recommendations.PatentFilingAdvice)
}

func strPtr(s string) *string { return &s }
