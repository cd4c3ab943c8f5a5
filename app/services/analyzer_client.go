package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmsu/prior-art-portal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counts analyses served from the placeholder report instead of the gateway
var analysisFallbacks = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "portal_analysis_fallbacks_total",
		Help: "Total number of analyses served from the fallback report",
	},
)

// PriorArtAnalyzer produces a structured prior-art report for a disclosure.
// Implementations talk to an external AI gateway; callers must be prepared
// for any error and substitute FallbackReport so a submission always
// completes.
type PriorArtAnalyzer interface {
	Analyze(ctx context.Context, submission *models.Submission) (*models.AnalysisReport, error)
}

// PerplexityClient calls a Perplexity-style chat-completions endpoint and
// parses the model output as a JSON report.
type PerplexityClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewPerplexityClient(baseURL, apiKey, model string, timeout time.Duration) *PerplexityClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if model == "" {
		model = "sonar-pro"
	}
	return &PerplexityClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *PerplexityClient) Name() string { return "perplexity" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionReq struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const analyzerSystemPrompt = `You are a patent prior-art analyst. Given a technology disclosure, respond with a single JSON object with keys: prior_art_report (array of up to 10 objects with title, summary, similarities, differences), patentability_analysis (object with novelty, inventive_step, industrial_applicability), recommendations (object with improvement_suggestions, patent_filing_advice). Respond with JSON only, no prose.`

// Analyze sends the disclosure to the gateway and decodes the structured
// report from the model output.
func (c *PerplexityClient) Analyze(ctx context.Context, submission *models.Submission) (*models.AnalysisReport, error) {
	if c.APIKey == "" {
		return nil, errors.New("analyzer API key not configured")
	}

	body := chatCompletionReq{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analyzerSystemPrompt},
			{Role: "user", Content: buildAnalyzerPrompt(submission)},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := c.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer gateway returned status %d", resp.StatusCode)
	}

	var out chatCompletionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("analyzer gateway returned no choices")
	}

	report, err := parseAnalyzerOutput(out.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// buildAnalyzerPrompt assembles the disclosure fields into the user message
func buildAnalyzerPrompt(submission *models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nDescription:\n%s\n", submission.Title, submission.Description)
	if submission.Claims != nil && *submission.Claims != "" {
		fmt.Fprintf(&b, "\nClaims:\n%s\n", *submission.Claims)
	}
	if submission.Inventors != nil && *submission.Inventors != "" {
		fmt.Fprintf(&b, "\nInventors: %s\n", *submission.Inventors)
	}
	if submission.FileText != nil && *submission.FileText != "" {
		text := *submission.FileText
		// Keep the prompt bounded; uploaded documents can be large. The cut
		// lands on a rune boundary so the prompt stays valid UTF-8.
		if len(text) > 20000 {
			cut := 20000
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		fmt.Fprintf(&b, "\nSupporting document:\n%s\n", text)
	}
	return b.String()
}

// parseAnalyzerOutput extracts and decodes the JSON object from the model
// output. Models occasionally wrap the JSON in markdown fences or prose.
func parseAnalyzerOutput(content string) (*models.AnalysisReport, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in analyzer output")
	}

	var report models.AnalysisReport
	if err := json.Unmarshal([]byte(content[start:end+1]), &report); err != nil {
		return nil, fmt.Errorf("failed to decode analyzer output: %w", err)
	}

	if len(report.PriorArtReport) > models.MaxPriorArtReferences {
		report.PriorArtReport = report.PriorArtReport[:models.MaxPriorArtReferences]
	}

	return &report, nil
}

// FallbackReport builds a deterministic placeholder report used whenever the
// gateway is unreachable or returns garbage. The submission still completes;
// the report tells the reader that automated search was unavailable.
func FallbackReport(submission *models.Submission) *models.AnalysisReport {
	analysisFallbacks.Inc()
	return &models.AnalysisReport{
		PriorArtReport: []models.PriorArtReference{
			{
				Title:        "Automated prior-art search unavailable",
				Summary:      fmt.Sprintf("The automated analysis service could not be reached for disclosure %s. A manual prior-art search is recommended.", submission.SerialNumber),
				Similarities: "Not assessed",
				Differences:  "Not assessed",
			},
		},
		PatentabilityAnalysis: models.PatentabilityAnalysis{
			Novelty:                 "Could not be assessed automatically. Please consult a patent professional.",
			InventiveStep:           "Could not be assessed automatically. Please consult a patent professional.",
			IndustrialApplicability: "Could not be assessed automatically. Please consult a patent professional.",
		},
		Recommendations: models.Recommendations{
			ImprovementSuggestions: "Document the technical problem, the proposed solution, and measurable advantages over existing approaches.",
			PatentFilingAdvice:     "Contact the technology transfer office to schedule a manual prior-art search before filing.",
		},
	}
}
