// internal/models/search.go
package models

// SearchRequest is the job payload consumed by the mode handlers.
type SearchRequest struct {
	RequestID string `json:"requestId"`
	Query     string `json:"query"`
	Intent    Intent `json:"intent"`
}

// SearchResponse is what every mode handler returns.
type SearchResponse struct {
	RequestID    string       `json:"requestId"`
	Mode         Mode         `json:"mode"`
	Answer       string       `json:"answer"`
	Funds        []FundRecord `json:"funds,omitempty"`
	MissingFunds []string     `json:"missingFunds,omitempty"`
}
