package models

type ScrapedContent struct {
	URL    string   `json:"url"`
	Title  string   `json:"title,omitempty"`
	Text   string   `json:"text"`
	Images []string `json:"images"`
}
