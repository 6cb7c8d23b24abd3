package models

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusLoading   StepStatus = "loading"
	StepStatusCompleted StepStatus = "completed"
	StepStatusError     StepStatus = "error"
)

// Canonical step IDs, in pipeline order.
const (
	StepGetURL        = "get-url"
	StepScrapeContent = "scrape-content"
	StepDetectAI      = "detect-ai"
	StepFactCheck     = "fact-check"
	StepSentiment     = "sentiment-analysis"
	StepImageAnalysis = "image-analysis"
	StepSummarization = "summarization"
	StepReport        = "generate-report"
)

type AnalysisStep struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}
