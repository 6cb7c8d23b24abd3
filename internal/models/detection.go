package models

type DetectionResult struct {
	TextPreview         string `json:"textPreview"`
	AILikelihoodPercent int    `json:"aiLikelihoodPercent"`
}

type TopSource struct {
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

type ImageDetectionResult struct {
	URL                 string      `json:"url"`
	AILikelihoodPercent int         `json:"aiLikelihoodPercent"`
	RawModelReply       string      `json:"rawModelReply"`
	TopSources          []TopSource `json:"topSources,omitempty"`
}
