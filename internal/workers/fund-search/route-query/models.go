// internal/workers/fund-search/route-query/models.go
package routequery

import (
	"context"

	"mf-search-workers/internal/models"
)

type Input struct {
	RequestID string `json:"requestId"`
	Query     string `json:"query"`
}

// Output returns the detected intent next to the answer so callers can show
// which search ran.
type Output struct {
	RequestID    string              `json:"requestId"`
	Query        string              `json:"query"`
	Mode         models.Mode         `json:"mode"`
	Intent       models.Intent       `json:"intent"`
	Answer       string              `json:"answer"`
	Funds        []models.FundRecord `json:"funds,omitempty"`
	MissingFunds []string            `json:"missingFunds,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, query string) (*models.Intent, error)
}

// ModeHandler answers one classified request. The single, comparison and
// filtered workers all satisfy it through their Execute methods.
type ModeHandler interface {
	Execute(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}
