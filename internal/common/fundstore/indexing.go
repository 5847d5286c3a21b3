package fundstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// fundNamespace seeds deterministic document ids so re-indexing a fund
// overwrites its previous document.
var fundNamespace = uuid.MustParse("6f0b6c3e-7d0a-4f57-9a3e-3c1b9a4f2d10")

// Document is one fund plus its name embedding, ready for indexing.
type Document struct {
	Fund      models.FundRecord
	Embedding []float64
}

// DocumentID derives the stable id of a fund from its normalized name.
func DocumentID(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	return uuid.NewSHA1(fundNamespace, []byte(key)).String()
}

// EnsureIndex creates the fund index with a dense_vector mapping of dims
// dimensions. It reports whether the index was created.
func (s *Store) EnsureIndex(ctx context.Context, dims int) (bool, error) {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("%w: check index: %v", apperrors.ErrIndexingFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return false, nil
	}
	if res.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("%w: check index: %s", apperrors.ErrIndexingFailed, res.Status())
	}

	mapping, err := json.Marshal(indexMapping(dims))
	if err != nil {
		return false, fmt.Errorf("%w: encode mapping: %v", apperrors.ErrIndexingFailed, err)
	}

	res, err = s.es.Indices.Create(
		s.index,
		s.es.Indices.Create.WithBody(bytes.NewReader(mapping)),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("%w: create index: %v", apperrors.ErrIndexingFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return false, fmt.Errorf("%w: create index: %s", apperrors.ErrIndexingFailed, res.String())
	}

	s.logger.Info("fund index created", map[string]interface{}{"dims": dims})
	return true, nil
}

func indexMapping(dims int) map[string]interface{} {
	number := map[string]interface{}{"type": "float"}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":   "text",
					"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}},
				},
				"document":          map[string]interface{}{"type": "text"},
				"one_year_return":   number,
				"three_year_return": number,
				"five_year_return":  number,
				"expense_ratio":     number,
				"aum":               number,
				"benchmark":         map[string]interface{}{"type": "keyword"},
				"category":          map[string]interface{}{"type": "keyword"},
				vectorField: map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// BulkIndex writes docs with one bulk request and waits for refresh. It
// returns the number of documents the cluster accepted.
func (s *Store) BulkIndex(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": s.index, "_id": DocumentID(d.Fund.Name)},
		}
		if err := enc.Encode(meta); err != nil {
			return 0, fmt.Errorf("%w: encode action: %v", apperrors.ErrIndexingFailed, err)
		}
		if err := enc.Encode(documentSource(d)); err != nil {
			return 0, fmt.Errorf("%w: encode document %q: %v", apperrors.ErrIndexingFailed, d.Fund.Name, err)
		}
	}

	req := esapi.BulkRequest{
		Index:   s.index,
		Body:    &buf,
		Refresh: "wait_for",
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrIndexingFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrIndexingFailed, res.String())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: decode bulk response: %v", apperrors.ErrIndexingFailed, err)
	}

	accepted := 0
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error == nil && result.Status < 300 {
				accepted++
				continue
			}
			reason := ""
			if result.Error != nil {
				reason = result.Error.Type + ": " + result.Error.Reason
			}
			s.logger.Warn("bulk item rejected", map[string]interface{}{
				"id":     result.ID,
				"status": result.Status,
				"reason": reason,
			})
		}
	}
	return accepted, nil
}

func documentSource(d Document) map[string]interface{} {
	src := map[string]interface{}{
		"name":              d.Fund.Name,
		"document":          d.Fund.Name,
		vectorField:         d.Embedding,
		"benchmark":         d.Fund.Benchmark,
		"category":          d.Fund.Category,
		"aum":               d.Fund.AUM,
		"expense_ratio":     d.Fund.ExpenseRatio,
		"one_year_return":   d.Fund.OneYearReturn,
		"three_year_return": d.Fund.ThreeYearReturn,
		"five_year_return":  d.Fund.FiveYearReturn,
	}
	if d.Fund.Document != "" {
		src["document"] = d.Fund.Document
	}
	// Absent metrics stay unindexed so range filters exclude them.
	for k, v := range src {
		if isNilPointer(v) {
			delete(src, k)
		}
	}
	return src
}

func isNilPointer(v interface{}) bool {
	switch p := v.(type) {
	case *float64:
		return p == nil
	case *string:
		return p == nil
	}
	return false
}
