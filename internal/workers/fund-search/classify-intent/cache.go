package classifyintent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// intentCache stores classifications keyed by model and query text. The
// classifier runs at a fixed temperature and seed, so a cached reply is the
// reply the model would give again.
type intentCache struct {
	redis  redis.Cmdable
	model  string
	ttl    time.Duration
	logger logger.Logger
}

func (c *intentCache) key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "mf:intent:" + c.model + ":" + hex.EncodeToString(sum[:])
}

func (c *intentCache) get(ctx context.Context, query string) (*models.Intent, bool) {
	data, err := c.redis.Get(ctx, c.key(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("intent cache read failed", map[string]interface{}{"error": err.Error()})
		}
		metrics.CacheLookups.WithLabelValues("intent", "miss").Inc()
		return nil, false
	}

	var intent models.Intent
	if err := json.Unmarshal(data, &intent); err != nil || !intent.Mode.Valid() {
		metrics.CacheLookups.WithLabelValues("intent", "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("intent", "hit").Inc()
	return &intent, true
}

func (c *intentCache) set(ctx context.Context, query string, intent *models.Intent) {
	data, err := json.Marshal(intent)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.key(query), data, c.ttl).Err(); err != nil {
		c.logger.Warn("intent cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
