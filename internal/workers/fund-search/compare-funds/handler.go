// internal/workers/fund-search/compare-funds/handler.go
package comparefunds

import (
	"context"
	"fmt"

	"mf-search-workers/internal/common/camunda"
	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/fundstore"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/common/observability"
	"mf-search-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "compare-funds"

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

// Execute retrieves every named fund in turn, summarizes the winners per
// metric and asks the model for a structured comparison.
func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	ctx, span := observability.StartSpan(ctx, "fund-search.comparison",
		attribute.String("request.id", input.RequestID),
	)
	defer func() { observability.EndSpan(span, err) }()

	mode := input.Intent.Mode.Normalize()
	if mode != "" && mode != models.ModeComparison {
		return nil, fmt.Errorf("%w: expected mode %q, got %q", apperrors.ErrInvalidIntent, models.ModeComparison, input.Intent.Mode)
	}
	names := input.Intent.FundNames()
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: comparison needs at least two funds, got %d", apperrors.ErrInvalidIntent, len(names))
	}

	log := logger.ForRequest(h.logger, input.RequestID)
	metrics.FundQueries.WithLabelValues(string(models.ModeComparison)).Inc()

	var (
		found   []ComparedFund
		missing []string
		seen    = make(map[string]string, len(names))
	)
	for _, name := range names {
		fund, err := h.funds.FindFund(ctx, name)
		if err != nil {
			return nil, err
		}
		if fund == nil {
			metrics.FundRetrievalMisses.WithLabelValues(string(models.ModeComparison)).Inc()
			missing = append(missing, name)
			continue
		}
		// Two names resolving to one record would compare the fund with itself.
		id := fundstore.DocumentID(fund.Name)
		if first, dup := seen[id]; dup {
			log.Info("requested fund resolved to an already matched record", map[string]interface{}{
				"requested": name,
				"matched":   first,
				"record":    fund.Name,
			})
			metrics.FundRetrievalMisses.WithLabelValues(string(models.ModeComparison)).Inc()
			missing = append(missing, name)
			continue
		}
		seen[id] = name
		found = append(found, ComparedFund{Requested: name, Record: *fund})
	}

	if len(found) == 0 {
		log.Info("no requested fund found", map[string]interface{}{"funds": names})
		return &Output{
			RequestID:    input.RequestID,
			Mode:         models.ModeComparison,
			Answer:       models.WithDisclaimer(noneFoundAnswer(names)),
			MissingFunds: missing,
		}, nil
	}

	summary := Summarize(found)
	log.Debug("comparison summary computed", map[string]interface{}{
		"found":   len(found),
		"missing": len(missing),
		"rows":    len(summary.Rows),
	})

	answer, err := h.chat.Complete(ctx, llm.ChatRequest{
		Purpose:     string(models.ModeComparison),
		Model:       h.config.Model,
		System:      systemPrompt,
		User:        buildUserPrompt(input.Query, found, missing, summary),
		Temperature: h.config.Temperature,
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.FundRecord, len(found))
	for i, f := range found {
		records[i] = f.Record
	}
	return &Output{
		RequestID:    input.RequestID,
		Mode:         models.ModeComparison,
		Answer:       models.WithDisclaimer(answer),
		Funds:        records,
		MissingFunds: missing,
	}, nil
}
