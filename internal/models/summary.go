package models

type SummarizationResult struct {
	Summary       string `json:"summary"`
	Model         string `json:"model"`
	InputLength   int    `json:"input_length"`
	SummaryLength int    `json:"summary_length"`
}
