// Package indexer embeds fund names and loads them into the search index.
package indexer

import (
	"context"
	"fmt"
	"time"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/fundstore"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/fundsource"
	"mf-search-workers/internal/models"
)

const DefaultBatchSize = 500

// IndexStore is the write side of the fund index.
type IndexStore interface {
	EnsureIndex(ctx context.Context, dims int) (bool, error)
	BulkIndex(ctx context.Context, docs []fundstore.Document) (int, error)
}

type Indexer struct {
	source    fundsource.Source
	embedder  llm.Embedder
	store     IndexStore
	batchSize int
	progress  func(done, total int)
	logger    logger.Logger
}

// Report summarizes one indexing run.
type Report struct {
	Loaded       int           `json:"loaded"`
	Duplicates   int           `json:"duplicates"`
	Indexed      int           `json:"indexed"`
	Rejected     int           `json:"rejected"`
	IndexCreated bool          `json:"indexCreated"`
	Duration     time.Duration `json:"duration"`
}

func New(source fundsource.Source, embedder llm.Embedder, store IndexStore, batchSize int, log logger.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{
		source:    source,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		logger:    log.WithFields(map[string]interface{}{"component": "indexer"}),
	}
}

// OnProgress registers fn to be called after every indexed batch with the
// number of unique funds handled so far.
func (ix *Indexer) OnProgress(fn func(done, total int)) *Indexer {
	ix.progress = fn
	return ix
}

// Run loads every fund, embeds the names batch by batch and bulk-indexes
// them. Funds whose names normalize to the same document id are indexed
// once, keeping the last occurrence.
func (ix *Indexer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	funds, err := ix.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	report.Loaded = len(funds)

	docs := dedupe(funds)
	report.Duplicates = len(funds) - len(docs)
	if report.Duplicates > 0 {
		ix.logger.Warn("duplicate fund names collapsed", map[string]interface{}{"duplicates": report.Duplicates})
	}

	ensured := false
	for from := 0; from < len(docs); from += ix.batchSize {
		to := from + ix.batchSize
		if to > len(docs) {
			to = len(docs)
		}
		batch := docs[from:to]

		names := make([]string, len(batch))
		for i := range batch {
			names[i] = batch[i].Fund.Name
		}
		vectors, err := ix.embedder.Embed(ctx, names)
		if err != nil {
			return report, err
		}
		if len(vectors) != len(batch) {
			return report, fmt.Errorf("%w: got %d vectors for %d funds", apperrors.ErrEmbeddingFailed, len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}

		if !ensured {
			created, err := ix.store.EnsureIndex(ctx, len(vectors[0]))
			if err != nil {
				return report, err
			}
			report.IndexCreated, ensured = created, true
		}

		accepted, err := ix.store.BulkIndex(ctx, batch)
		if err != nil {
			return report, err
		}
		report.Indexed += accepted
		report.Rejected += len(batch) - accepted
		metrics.FundsIndexed.WithLabelValues("indexed").Add(float64(accepted))
		metrics.FundsIndexed.WithLabelValues("rejected").Add(float64(len(batch) - accepted))

		ix.logger.Info("batch indexed", map[string]interface{}{
			"from":     from,
			"to":       to,
			"accepted": accepted,
		})
		if ix.progress != nil {
			ix.progress(to, len(docs))
		}
	}

	report.Duration = time.Since(start)
	ix.logger.Info("indexing finished", map[string]interface{}{
		"loaded":     report.Loaded,
		"indexed":    report.Indexed,
		"rejected":   report.Rejected,
		"duplicates": report.Duplicates,
		"durationMs": report.Duration.Milliseconds(),
	})
	return report, nil
}

func dedupe(funds []models.FundRecord) []fundstore.Document {
	pos := make(map[string]int, len(funds))
	docs := make([]fundstore.Document, 0, len(funds))
	for _, f := range funds {
		id := fundstore.DocumentID(f.Name)
		if i, ok := pos[id]; ok {
			docs[i].Fund = f
			continue
		}
		pos[id] = len(docs)
		docs = append(docs, fundstore.Document{Fund: f})
	}
	return docs
}
