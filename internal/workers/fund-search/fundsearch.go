// internal/workers/fund-search/fundsearch.go

// Package fundsearch assembles the shared clients and the five fund search
// workers for the worker manager and fundctl.
package fundsearch

import (
	"context"
	"fmt"
	"time"

	"mf-search-workers/internal/common/camunda"
	"mf-search-workers/internal/common/config"
	"mf-search-workers/internal/common/database"
	"mf-search-workers/internal/common/fundstore"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/models"
	classifyintent "mf-search-workers/internal/workers/fund-search/classify-intent"
	comparefunds "mf-search-workers/internal/workers/fund-search/compare-funds"
	filteredsearch "mf-search-workers/internal/workers/fund-search/filtered-search"
	routequery "mf-search-workers/internal/workers/fund-search/route-query"
	singlefund "mf-search-workers/internal/workers/fund-search/single-fund"

	"github.com/redis/go-redis/v9"
)

// Services are the long-lived clients, built once and shared by every worker.
type Services struct {
	LLM           *llm.Client
	Embedder      llm.Embedder
	Elasticsearch *database.ElasticsearchClient
	Redis         *database.RedisClient
	Store         *fundstore.Store
	Searcher      *fundstore.Searcher
}

// Connect builds the OpenAI, Elasticsearch and Redis clients from cfg. Redis
// is optional; without it both caches are off.
func Connect(cfg *config.Config, log logger.Logger) (*Services, error) {
	llmClient, err := llm.NewClient(llm.ConfigFromApp(cfg.OpenAI), log)
	if err != nil {
		return nil, err
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}

	svc := &Services{LLM: llmClient, Embedder: llmClient, Elasticsearch: es}

	if cfg.Database.Redis.Address != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		svc.Redis = rdb
		if ttl := time.Duration(cfg.OpenAI.EmbeddingCacheTTL) * time.Second; ttl > 0 {
			svc.Embedder = llm.NewCachedEmbedder(llmClient, rdb.Client, cfg.OpenAI.EmbeddingModel, ttl, log)
		}
	}

	svc.Store = fundstore.NewStore(es.Client, cfg.Search.Index, cfg.Search.NumCandidates, log)
	svc.Searcher = fundstore.NewSearcher(svc.Embedder, svc.Store, cfg.Search.ShortQueryWords, log)
	return svc, nil
}

// Ping checks every backing store. It is used for readiness.
func (s *Services) Ping(ctx context.Context) map[string]error {
	checks := map[string]error{
		"elasticsearch": s.Elasticsearch.Ping(ctx),
		"fundIndex":     s.Store.Ping(ctx),
	}
	if s.Redis != nil {
		checks["redis"] = s.Redis.Ping(ctx)
	}
	return checks
}

func (s *Services) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}

func (s *Services) cmdable() redis.Cmdable {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Client
}

// Handlers holds one handler per task type plus the router that ties them
// together.
type Handlers struct {
	Classify *classifyintent.Handler
	Single   *singlefund.Handler
	Compare  *comparefunds.Handler
	Filtered *filteredsearch.Handler
	Route    *routequery.Handler
	Router   *routequery.Router

	configs map[string]workerSettings
}

type workerSettings struct {
	enabled       bool
	maxJobsActive int
	timeout       time.Duration
}

type validator interface{ Validate() error }

// NewHandlers builds and validates every worker from the application config.
func NewHandlers(cfg *config.Config, svc *Services, log logger.Logger) (*Handlers, error) {
	classifyCfg := classifyintent.ConfigFromApp(cfg)
	singleCfg := singlefund.ConfigFromApp(cfg)
	compareCfg := comparefunds.ConfigFromApp(cfg)
	filteredCfg := filteredsearch.ConfigFromApp(cfg)
	routeCfg := routequery.ConfigFromApp(cfg)

	for name, c := range map[string]validator{
		classifyintent.TaskType: classifyCfg,
		singlefund.TaskType:     singleCfg,
		comparefunds.TaskType:   compareCfg,
		filteredsearch.TaskType: filteredCfg,
		routequery.TaskType:     routeCfg,
	} {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("worker %s: %w", name, err)
		}
	}

	h := &Handlers{
		Classify: classifyintent.NewHandler(classifyCfg, svc.LLM, svc.cmdable(), log),
		Single:   singlefund.NewHandler(singleCfg, svc.Searcher, svc.LLM, log),
		Compare:  comparefunds.NewHandler(compareCfg, svc.Searcher, svc.LLM, log),
		Filtered: filteredsearch.NewHandler(filteredCfg, svc.Searcher, svc.LLM, log),
		configs: map[string]workerSettings{
			classifyintent.TaskType: {classifyCfg.Enabled, classifyCfg.MaxJobsActive, classifyCfg.Timeout},
			singlefund.TaskType:     {singleCfg.Enabled, singleCfg.MaxJobsActive, singleCfg.Timeout},
			comparefunds.TaskType:   {compareCfg.Enabled, compareCfg.MaxJobsActive, compareCfg.Timeout},
			filteredsearch.TaskType: {filteredCfg.Enabled, filteredCfg.MaxJobsActive, filteredCfg.Timeout},
			routequery.TaskType:     {routeCfg.Enabled, routeCfg.MaxJobsActive, routeCfg.Timeout},
		},
	}
	h.Router = routequery.NewRouter(h.Classify, map[models.Mode]routequery.ModeHandler{
		models.ModeSingle:     h.Single,
		models.ModeComparison: h.Compare,
		models.ModeFiltered:   h.Filtered,
	}, log)
	h.Route = routequery.NewHandler(routeCfg, h.Router, log)
	return h, nil
}

// Registration pairs a task type with its job handler and settings.
type Registration struct {
	TaskType      string
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	Handler       camunda.JobHandler
}

// Registrations lists the workers in a stable order.
func (h *Handlers) Registrations() []Registration {
	handlers := []struct {
		taskType string
		handler  camunda.JobHandler
	}{
		{routequery.TaskType, h.Route},
		{classifyintent.TaskType, h.Classify},
		{singlefund.TaskType, h.Single},
		{comparefunds.TaskType, h.Compare},
		{filteredsearch.TaskType, h.Filtered},
	}

	out := make([]Registration, 0, len(handlers))
	for _, e := range handlers {
		c := h.configs[e.taskType]
		out = append(out, Registration{
			TaskType:      e.taskType,
			Enabled:       c.enabled,
			MaxJobsActive: c.maxJobsActive,
			Timeout:       c.timeout,
			Handler:       e.handler,
		})
	}
	return out
}
