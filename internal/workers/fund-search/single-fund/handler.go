// internal/workers/fund-search/single-fund/handler.go
package singlefund

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

const TaskType = "single-fund-search"

type Handler struct {
	config *Config
	funds  FundFinder
	chat   llm.ChatCompleter
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, funds FundFinder, chat llm.ChatCompleter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		funds:  funds,
		chat:   chat,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
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

// Execute answers a question about the first fund named in the intent. A
// fund that cannot be matched yields a "does not exist" answer without a
// model call.
func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	ctx, span := observability.StartSpan(ctx, "fund-search.single",
		attribute.String("request.id", input.RequestID),
	)
	defer func() { observability.EndSpan(span, err) }()

	mode := input.Intent.Mode.Normalize()
	if mode != "" && mode != models.ModeSingle {
		return nil, fmt.Errorf("%w: expected mode %q, got %q", apperrors.ErrInvalidIntent, models.ModeSingle, input.Intent.Mode)
	}
	name := input.Intent.FirstFund()
	if name == "" {
		return nil, fmt.Errorf("%w: single fund search needs a fund name", apperrors.ErrInvalidIntent)
	}

	log := logger.ForRequest(h.logger, input.RequestID)
	metrics.FundQueries.WithLabelValues(string(models.ModeSingle)).Inc()

	fund, err := h.funds.FindFund(ctx, name)
	if err != nil {
		return nil, err
	}

	if fund == nil {
		metrics.FundRetrievalMisses.WithLabelValues(string(models.ModeSingle)).Inc()
		log.Info("requested fund not found", map[string]interface{}{"fund": name})
		return &Output{
			RequestID:    input.RequestID,
			Mode:         models.ModeSingle,
			Answer:       models.WithDisclaimer(notFoundAnswer(name)),
			MissingFunds: []string{name},
		}, nil
	}

	log.Debug("fund retrieved", map[string]interface{}{
		"requested": name,
		"retrieved": fund.Name,
		"score":     fund.Score,
	})

	answer, err := h.chat.Complete(ctx, llm.ChatRequest{
		Purpose:     string(models.ModeSingle),
		Model:       h.config.Model,
		System:      systemPrompt,
		User:        buildUserPrompt(input.Query, name, fund),
		Temperature: h.config.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID: input.RequestID,
		Mode:      models.ModeSingle,
		Answer:    models.WithDisclaimer(answer),
		Funds:     []models.FundRecord{*fund},
	}, nil
}
