package models

type SupportingSource struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type FactCheckClaim struct {
	Claim             string             `json:"claim"`
	IsLikelyTrue      bool               `json:"isLikelyTrue"`
	SupportingSources []SupportingSource `json:"supportingSources"`
}

type FactCheckResponse struct {
	Claims []FactCheckClaim `json:"claims"`
}
