package steps

import "pagetrust/internal/models"

// ContentDependent lists every step that needs scraped text or images to
// do anything. When scraping fails they are all marked as errored without
// their calls being attempted.
var ContentDependent = []string{
	models.StepDetectAI,
	models.StepFactCheck,
	models.StepSentiment,
	models.StepImageAnalysis,
	models.StepSummarization,
}

// Initialize returns the canonical ordered step list for a fresh run,
// everything pending.
func Initialize() []models.AnalysisStep {
	return []models.AnalysisStep{
		{ID: models.StepGetURL, Title: "Resolve page URL", Description: "Validate the URL of the page to analyze", Status: models.StepStatusPending},
		{ID: models.StepScrapeContent, Title: "Scrape content", Description: "Extract text and images from the page", Status: models.StepStatusPending},
		{ID: models.StepDetectAI, Title: "Detect AI text", Description: "Estimate how likely the text is AI-generated", Status: models.StepStatusPending},
		{ID: models.StepFactCheck, Title: "Fact check", Description: "Extract claims and check them against sources", Status: models.StepStatusPending},
		{ID: models.StepSentiment, Title: "Sentiment analysis", Description: "Summarize the overall tone of the text", Status: models.StepStatusPending},
		{ID: models.StepImageAnalysis, Title: "Image analysis", Description: "Check page images for AI generation", Status: models.StepStatusPending},
		{ID: models.StepSummarization, Title: "Summarization", Description: "Produce a short summary of the page", Status: models.StepStatusPending},
		{ID: models.StepReport, Title: "Generate report", Description: "Aggregate all signals into a risk report", Status: models.StepStatusPending},
	}
}

// UpdateStatus returns a new slice with only the matching step replaced.
// Order and every other entry are preserved; an unknown id is a no-op.
func UpdateStatus(list []models.AnalysisStep, id string, status models.StepStatus, errMsg string) []models.AnalysisStep {
	updated := make([]models.AnalysisStep, len(list))
	copy(updated, list)
	for i := range updated {
		if updated[i].ID == id {
			updated[i].Status = status
			updated[i].Error = errMsg
			break
		}
	}
	return updated
}
