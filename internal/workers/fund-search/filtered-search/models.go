// internal/workers/fund-search/filtered-search/models.go
package filteredsearch

import (
	"context"

	"mf-search-workers/internal/models"
)

type Input = models.SearchRequest

type Output = models.SearchResponse

// ThemeSearcher returns up to k funds near a theme that satisfy the filters.
type ThemeSearcher interface {
	SearchTheme(ctx context.Context, theme string, filters models.IntentFilters, k int) ([]models.FundRecord, error)
}
