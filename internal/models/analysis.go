package models

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Finding is one per-category entry in a report. A category that could not
// be evaluated still gets a Finding with Confidence 0 and an explanatory
// description.
type Finding struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Confidence  int    `json:"confidence"`
}

// APIData is the raw snapshot of everything the analysis service returned
// during one run. Nil fields mean the corresponding call failed or was
// never attempted.
type APIData struct {
	Scrape    *ScrapedContent        `json:"scrape,omitempty"`
	Detection *DetectionResult       `json:"detection,omitempty"`
	Claims    []FactCheckClaim       `json:"claims,omitempty"`
	Sentiment *SentimentResult       `json:"sentiment,omitempty"`
	Images    []ImageDetectionResult `json:"images,omitempty"`
	Summary   *SummarizationResult   `json:"summary,omitempty"`
}

// PageAnalysis is the aggregate persisted per URL. Exactly one is stored
// per URL key; a new run overwrites the previous one.
type PageAnalysis struct {
	RunID           string                 `json:"runId"`
	URL             string                 `json:"url"`
	Title           string                 `json:"title"`
	AIScore         int                    `json:"aiScore"`
	FakeNewsScore   int                    `json:"fakeNewsScore"`
	OverallRisk     RiskLevel              `json:"overallRisk"`
	Results         []Finding              `json:"results"`
	FactCheckClaims []FactCheckClaim       `json:"factCheckClaims"`
	ImageResults    []ImageDetectionResult `json:"imageResults"`
	Steps           []AnalysisStep         `json:"steps"`
	APIData         *APIData               `json:"apiData"`
	Timestamp       time.Time              `json:"timestamp"`
}
