package filteredsearch

import (
	"sort"

	"mf-search-workers/internal/models"
)

// Rank drops hits that fail the filters, orders the rest by 1-year return
// descending and keeps the first n. Funds without a 1-year return sort last;
// ties fall back to name, then to similarity score.
func Rank(hits []models.FundRecord, filters models.IntentFilters, n int) []models.FundRecord {
	ranked := make([]models.FundRecord, 0, len(hits))
	for i := range hits {
		if filters.Admits(&hits[i]) {
			ranked = append(ranked, hits[i])
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.OneYearReturn == nil && b.OneYearReturn != nil:
			return false
		case a.OneYearReturn != nil && b.OneYearReturn == nil:
			return true
		case a.OneYearReturn != nil && *a.OneYearReturn != *b.OneYearReturn:
			return *a.OneYearReturn > *b.OneYearReturn
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Score > b.Score
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
