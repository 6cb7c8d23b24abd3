package models

type SentimentResult struct {
	Summary string `json:"summary"`
}
