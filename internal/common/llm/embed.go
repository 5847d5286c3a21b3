package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/common/observability"

	"github.com/openai/openai-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Embed requests embeddings in batches of EmbeddingBatchSize. An empty input
// returns an empty result without a network call.
func (c *Client) Embed(ctx context.Context, texts []string) (out [][]float64, err error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	ctx, span := observability.StartSpan(ctx, "llm.embed",
		attribute.Int("llm.inputs", len(texts)),
		attribute.String("llm.model", c.config.EmbeddingModel),
	)
	defer func() {
		observability.EndSpan(span, err)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.LLMCalls.WithLabelValues("embed", status).Inc()
	}()

	out = make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.config.EmbeddingBatchSize {
		end := start + c.config.EmbeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		Model: openai.EmbeddingModel(c.config.EmbeddingModel),
	})
	if err != nil {
		c.logger.Warn("embedding request failed", map[string]interface{}{
			"batchSize": len(batch),
			"status":    statusCode(err),
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingFailed, err)
	}

	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", apperrors.ErrEmbeddingFailed, len(batch), len(resp.Data))
	}

	vectors := make([][]float64, len(batch))
	for i, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(batch) {
			idx = i
		}
		vectors[idx] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing vector for input %d", apperrors.ErrEmbeddingFailed, i)
		}
	}
	return vectors, nil
}

// CachedEmbedder memoizes vectors in Redis. Cache errors are logged and the
// request falls through to the wrapped Embedder.
type CachedEmbedder struct {
	next   Embedder
	redis  redis.Cmdable
	model  string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedEmbedder(next Embedder, rdb redis.Cmdable, model string, ttl time.Duration, log logger.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		redis:  rdb,
		model:  model,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "embedding-cache"}),
	}
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "mf:emb:" + e.model + ":" + hex.EncodeToString(sum[:])
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = e.key(t)
	}

	out := make([][]float64, len(texts))
	var missIdx []int

	cached, err := e.redis.MGet(ctx, keys...).Result()
	if err != nil || len(cached) != len(texts) {
		if err != nil {
			e.logger.Warn("embedding cache read failed", map[string]interface{}{"error": err.Error()})
		}
		cached = make([]interface{}, len(texts))
	}

	for i := range texts {
		if s, ok := cached[i].(string); ok {
			var v []float64
			if json.Unmarshal([]byte(s), &v) == nil && len(v) > 0 {
				out[i] = v
				metrics.CacheLookups.WithLabelValues("embedding", "hit").Inc()
				continue
			}
		}
		metrics.CacheLookups.WithLabelValues("embedding", "miss").Inc()
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	missing := make([]string, len(missIdx))
	for j, i := range missIdx {
		missing[j] = texts[i]
	}

	vectors, err := e.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", apperrors.ErrEmbeddingFailed, len(missing), len(vectors))
	}

	pipe := e.redis.Pipeline()
	for j, i := range missIdx {
		out[i] = vectors[j]
		if data, err := json.Marshal(vectors[j]); err == nil {
			pipe.Set(ctx, keys[i], data, e.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		e.logger.Warn("embedding cache write failed", map[string]interface{}{"error": err.Error()})
	}

	return out, nil
}
