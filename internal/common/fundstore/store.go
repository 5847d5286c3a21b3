// Package fundstore is the vector store accessor for fund records kept in an
// Elasticsearch dense_vector index.
package fundstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/observability"
	"mf-search-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel/attribute"
)

const (
	vectorField          = "embedding"
	defaultNumCandidates = 100
)

type Store struct {
	es            *elasticsearch.Client
	index         string
	numCandidates int
	logger        logger.Logger
}

func NewStore(es *elasticsearch.Client, index string, numCandidates int, log logger.Logger) *Store {
	if numCandidates <= 0 {
		numCandidates = defaultNumCandidates
	}
	return &Store{
		es:            es,
		index:         index,
		numCandidates: numCandidates,
		logger:        log.WithFields(map[string]interface{}{"component": "fundstore", "index": index}),
	}
}

func (s *Store) Index() string { return s.index }

// Query returns up to k records nearest to vector that satisfy filters,
// ranked by similarity. A nil filters value means no restriction.
func (s *Store) Query(ctx context.Context, vector []float64, k int, filters *models.IntentFilters) (out []models.FundRecord, err error) {
	ctx, span := observability.StartSpan(ctx, "fundstore.query",
		attribute.Int("knn.k", k),
		attribute.String("es.index", s.index),
	)
	defer func() { observability.EndSpan(span, err) }()

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", apperrors.ErrSearchQueryFailed)
	}

	body, err := json.Marshal(s.buildKNNQuery(vector, k, filters))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", apperrors.ErrSearchQueryFailed, err)
	}

	size := k
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSearchTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, s.index)
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSearchQueryFailed, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", apperrors.ErrSearchQueryFailed, err)
	}

	out = make([]models.FundRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		rec := hit.Source
		rec.Score = hit.Score
		out = append(out, rec)
	}

	s.logger.Debug("knn query finished", map[string]interface{}{
		"k":       k,
		"hits":    len(out),
		"tookMs":  parsed.Took,
		"filters": filters != nil && !filters.Empty(),
	})
	return out, nil
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Hits []struct {
			ID     string            `json:"_id"`
			Score  float64           `json:"_score"`
			Source models.FundRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Store) buildKNNQuery(vector []float64, k int, filters *models.IntentFilters) map[string]interface{} {
	candidates := s.numCandidates
	if candidates < k {
		candidates = k
	}

	knn := map[string]interface{}{
		"field":          vectorField,
		"query_vector":   vector,
		"k":              k,
		"num_candidates": candidates,
	}
	if filters != nil {
		if clauses := BuildFilter(*filters); len(clauses) > 0 {
			knn["filter"] = map[string]interface{}{
				"bool": map[string]interface{}{"filter": clauses},
			}
		}
	}

	return map[string]interface{}{
		"knn":     knn,
		"_source": map[string]interface{}{"excludes": []string{vectorField}},
	}
}

// BuildFilter turns the present numeric filters into strict range clauses.
// Absent filters produce no clause; category never does.
func BuildFilter(f models.IntentFilters) []interface{} {
	var clauses []interface{}
	if f.Min1YrReturn != nil {
		clauses = append(clauses, rangeClause("one_year_return", "gt", *f.Min1YrReturn))
	}
	if f.Min3YrReturn != nil {
		clauses = append(clauses, rangeClause("three_year_return", "gt", *f.Min3YrReturn))
	}
	if f.MaxExpenseRatio != nil {
		clauses = append(clauses, rangeClause("expense_ratio", "lt", *f.MaxExpenseRatio))
	}
	return clauses
}

func rangeClause(field, op string, v float64) map[string]interface{} {
	return map[string]interface{}{
		"range": map[string]interface{}{
			field: map[string]interface{}{op: v},
		},
	}
}

// Ping checks that the fund index exists.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fund index check failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, s.index)
	}
	if res.IsError() {
		return fmt.Errorf("fund index check failed: %s", strings.TrimSpace(res.String()))
	}
	return nil
}
