package models

// AnalysisReport is the structured result produced by the prior-art analyzer.
// The shape mirrors the gateway wire contract: up to ten prior-art candidates,
// a patentability assessment, and filing recommendations.
type AnalysisReport struct {
	PriorArtReport         []PriorArtReference    `json:"prior_art_report"`
	PatentabilityAnalysis  PatentabilityAnalysis  `json:"patentability_analysis"`
	Recommendations        Recommendations        `json:"recommendations"`
}

// PriorArtReference describes one prior-art candidate and how it relates to
// the disclosed technology.
type PriorArtReference struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Similarities string `json:"similarities"`
	Differences  string `json:"differences"`
}

type PatentabilityAnalysis struct {
	Novelty                 string `json:"novelty"`
	InventiveStep           string `json:"inventive_step"`
	IndustrialApplicability string `json:"industrial_applicability"`
}

type Recommendations struct {
	ImprovementSuggestions string `json:"improvement_suggestions"`
	PatentFilingAdvice     string `json:"patent_filing_advice"`
}

// MaxPriorArtReferences caps the number of candidates kept from a gateway
// response.
const MaxPriorArtReferences = 10
