// internal/workers/fund-search/single-fund/models.go
package singlefund

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
