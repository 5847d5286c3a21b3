// internal/workers/fund-search/route-query/handler.go
package routequery

import (
	"context"

	"mf-search-workers/internal/common/camunda"
	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "route-fund-query"

type Handler struct {
	config *Config
	router *Router
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, router *Router, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		router: router,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.router.Route(ctx, input.RequestID, input.Query)
}
