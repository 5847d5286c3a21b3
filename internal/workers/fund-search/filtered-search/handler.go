// internal/workers/fund-search/filtered-search/handler.go
package filteredsearch

import (
	"context"
	"fmt"

	"mf-search-workers/internal/common/camunda"
	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/common/observability"
	"mf-search-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "filtered-fund-search"

type Handler struct {
	config   *Config
	searcher ThemeSearcher
	chat     llm.ChatCompleter
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, searcher ThemeSearcher, chat llm.ChatCompleter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		chat:     chat,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
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
}

// Execute runs one filtered similarity query for the theme, re-ranks the hits
// by 1-year return and asks the model to explain the top results.
func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	ctx, span := observability.StartSpan(ctx, "fund-search.filtered",
		attribute.String("request.id", input.RequestID),
		attribute.Int("search.top_k", h.config.TopK),
	)
	defer func() { observability.EndSpan(span, err) }()

	mode := input.Intent.Mode.Normalize()
	if mode != "" && mode != models.ModeFiltered {
		return nil, fmt.Errorf("%w: expected mode %q, got %q", apperrors.ErrInvalidIntent, models.ModeFiltered, input.Intent.Mode)
	}
	theme := input.Intent.Theme()
	if theme == "" {
		return nil, fmt.Errorf("%w: filtered search for %q has no theme", apperrors.ErrMissingTheme, input.Query)
	}

	log := logger.ForRequest(h.logger, input.RequestID)
	metrics.FundQueries.WithLabelValues(string(models.ModeFiltered)).Inc()

	filters := input.Intent.Filters
	hits, err := h.searcher.SearchTheme(ctx, theme, filters, h.config.TopK)
	if err != nil {
		return nil, err
	}
	funds := Rank(hits, filters, h.config.Results)
	log.Debug("filtered hits ranked", map[string]interface{}{
		"theme": theme,
		"hits":  len(hits),
		"kept":  len(funds),
	})

	if len(funds) == 0 {
		metrics.FundRetrievalMisses.WithLabelValues(string(models.ModeFiltered)).Inc()
		return &Output{
			RequestID: input.RequestID,
			Mode:      models.ModeFiltered,
			Answer:    models.WithDisclaimer(noMatchAnswer(theme)),
		}, nil
	}

	answer, err := h.chat.Complete(ctx, llm.ChatRequest{
		Purpose:     string(models.ModeFiltered),
		Model:       h.config.Model,
		System:      systemPrompt,
		User:        buildUserPrompt(input.Query, theme, filters, funds),
		Temperature: h.config.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID: input.RequestID,
		Mode:      models.ModeFiltered,
		Answer:    models.WithDisclaimer(answer),
		Funds:     funds,
	}, nil
}
