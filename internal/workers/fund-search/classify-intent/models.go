// internal/workers/fund-search/classify-intent/models.go
package classifyintent

import "mf-search-workers/internal/models"

type Input struct {
	RequestID string `json:"requestId"`
	Query     string `json:"query"`
}

// Output carries the mode separately so a BPMN gateway can branch on it.
type Output struct {
	RequestID string        `json:"requestId"`
	Query     string        `json:"query"`
	Mode      models.Mode   `json:"mode"`
	Intent    models.Intent `json:"intent"`
}
