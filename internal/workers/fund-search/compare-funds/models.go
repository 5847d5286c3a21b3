// internal/workers/fund-search/compare-funds/models.go
package comparefunds

import (
	"context"

	"mf-search-workers/internal/models"
)

type Input = models.SearchRequest

type Output = models.SearchResponse

// FundFinder resolves a fund name to its nearest plausible record, or nil.
type FundFinder interface {
	FindFund(ctx context.Context, name string) (*models.FundRecord, error)
}

// ComparedFund pairs a requested name with the record it resolved to.
type ComparedFund struct {
	Requested string
	Record    models.FundRecord
}
