// internal/workers/fund-search/classify-intent/handler.go
package classifyintent

import (
	"context"
	"fmt"
	"strings"

	"mf-search-workers/internal/common/camunda"
	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/common/validation"
	"mf-search-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const TaskType = "classify-fund-intent"

var jobInputSchema = validation.MustCompile(inputSchema)

type Handler struct {
	config *Config
	chat   llm.ChatCompleter
	cache  *intentCache
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

// NewHandler builds the classifier. A nil rdb disables the intent cache.
func NewHandler(config *Config, chat llm.ChatCompleter, rdb redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	h := &Handler{
		config: config,
		chat:   chat,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
	if rdb != nil && config.CacheTTL > 0 {
		h.cache = &intentCache{redis: rdb, model: config.Model, ttl: config.CacheTTL, logger: log}
	}
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	timer := metrics.StartJob(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		timer.Done(string(h.errors.HandleJobError(ctx, client, job, err).Code))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		timer.Done(string(h.errors.HandleJobError(ctx, client, job, err).Code))
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		timer.Done(string(apperrors.ErrCodeInternal))
		return
	}
	timer.Done("")

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":    job.Key,
		"requestId": output.RequestID,
		"mode":      output.Mode,
	})
}

// Execute validates the job input and classifies its query.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	input.Query = strings.TrimSpace(input.Query)
	if result := jobInputSchema.Validate(input); !result.Valid {
		if result.HasErrors("query") {
			return nil, apperrors.NewInvalidInputError(fmt.Errorf("query must be between 1 and 2000 characters"))
		}
		return nil, apperrors.NewInvalidInputError(fmt.Errorf("%s", strings.Join(result.GetErrorMessages(), "; ")))
	}
	if input.RequestID == "" {
		input.RequestID = uuid.NewString()
	}

	intent, err := h.Classify(logger.ContextWithRequestID(ctx, input.RequestID), input.Query)
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID: input.RequestID,
		Query:     input.Query,
		Mode:      intent.Mode,
		Intent:    *intent,
	}, nil
}

// Classify turns one user query into an Intent. Identical queries are served
// from the cache when one is configured.
func (h *Handler) Classify(ctx context.Context, query string) (*models.Intent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewInvalidInputError(fmt.Errorf("query is empty"))
	}
	log := logger.ForRequest(h.logger, logger.RequestIDFromContext(ctx))

	if h.cache != nil {
		if intent, ok := h.cache.get(ctx, query); ok {
			log.Debug("intent served from cache", map[string]interface{}{"mode": intent.Mode})
			return intent, nil
		}
	}

	reply, err := h.chat.Complete(ctx, llm.ChatRequest{
		Purpose:     "classify",
		Model:       h.config.Model,
		System:      systemPrompt,
		User:        query,
		Temperature: h.config.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	intent, err := ParseIntent(reply)
	if err != nil {
		log.Warn("classifier reply rejected", map[string]interface{}{
			"reply": reply,
			"error": err.Error(),
		})
		return nil, err
	}

	log.Info("query classified", map[string]interface{}{
		"mode":          intent.Mode,
		"funds":         len(intent.Funds),
		"semanticQuery": intent.Theme(),
		"filtered":      !intent.Filters.Empty(),
	})

	if h.cache != nil {
		h.cache.set(ctx, query, intent)
	}
	return intent, nil
}
