package fundstore

import (
	"context"
	"fmt"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/models"
)

// VectorQuerier is the part of Store the Searcher needs.
type VectorQuerier interface {
	Query(ctx context.Context, vector []float64, k int, filters *models.IntentFilters) ([]models.FundRecord, error)
}

// Searcher resolves fund names and themes to records by embedding the text
// and querying the vector store.
type Searcher struct {
	embedder        llm.Embedder
	store           VectorQuerier
	shortQueryWords int
	logger          logger.Logger
}

func NewSearcher(embedder llm.Embedder, store VectorQuerier, shortQueryWords int, log logger.Logger) *Searcher {
	return &Searcher{
		embedder:        embedder,
		store:           store,
		shortQueryWords: shortQueryWords,
		logger:          log.WithFields(map[string]interface{}{"component": "fund-searcher"}),
	}
}

// FindFund returns the single nearest fund to name, or nil when nothing was
// retrieved or the nearest fund is not a plausible match for name.
func (s *Searcher) FindFund(ctx context.Context, name string) (*models.FundRecord, error) {
	vector, err := s.embedOne(ctx, PadQuery(name, s.shortQueryWords))
	if err != nil {
		return nil, err
	}

	hits, err := s.store.Query(ctx, vector, 1, nil)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	best := hits[0]
	if !PlausibleMatch(name, best.Name) {
		s.logger.Info("nearest fund rejected as implausible", map[string]interface{}{
			"requested": name,
			"retrieved": best.Name,
			"score":     best.Score,
		})
		return nil, nil
	}
	return &best, nil
}

// SearchTheme returns up to k funds similar to theme that satisfy filters.
func (s *Searcher) SearchTheme(ctx context.Context, theme string, filters models.IntentFilters, k int) ([]models.FundRecord, error) {
	vector, err := s.embedOne(ctx, theme)
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, vector, k, &filters)
}

func (s *Searcher) embedOne(ctx context.Context, text string) ([]float64, error) {
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: no vector for %q", apperrors.ErrEmbeddingFailed, text)
	}
	return vectors[0], nil
}
