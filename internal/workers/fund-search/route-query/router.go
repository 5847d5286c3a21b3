package routequery

import (
	"context"
	"fmt"
	"strings"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/common/observability"
	"mf-search-workers/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Router classifies a query and hands it to exactly one mode handler.
type Router struct {
	classifier Classifier
	handlers   map[models.Mode]ModeHandler
	logger     logger.Logger
}

func NewRouter(classifier Classifier, handlers map[models.Mode]ModeHandler, log logger.Logger) *Router {
	normalized := make(map[models.Mode]ModeHandler, len(handlers))
	for mode, h := range handlers {
		normalized[mode.Normalize()] = h
	}
	return &Router{classifier: classifier, handlers: normalized, logger: log}
}

// Route runs classification followed by dispatch. A blank requestID gets a
// fresh one.
func (r *Router) Route(ctx context.Context, requestID, query string) (out *Output, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewInvalidInputError(fmt.Errorf("query is empty"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, span := observability.StartSpan(ctx, "fund-search.route",
		attribute.String("request.id", requestID),
	)
	defer func() { observability.EndSpan(span, err) }()
	ctx = logger.ContextWithRequestID(ctx, requestID)

	intent, err := r.classifier.Classify(ctx, query)
	if err != nil {
		logger.ForRequest(r.logger, requestID).WithError(err).Warn("classification failed", nil)
		return nil, err
	}

	resp, err := r.Dispatch(ctx, &models.SearchRequest{RequestID: requestID, Query: query, Intent: *intent})
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID:    requestID,
		Query:        query,
		Mode:         resp.Mode,
		Intent:       *intent,
		Answer:       resp.Answer,
		Funds:        resp.Funds,
		MissingFunds: resp.MissingFunds,
	}, nil
}

// Dispatch sends an already classified request to the handler for its mode.
// Mode matching ignores case and surrounding whitespace.
func (r *Router) Dispatch(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	mode := req.Intent.Mode.Normalize()
	h, ok := r.handlers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownMode, req.Intent.Mode)
	}

	logger.ForRequest(r.logger, req.RequestID).Info("dispatching query", map[string]interface{}{"mode": mode})
	req.Intent.Mode = mode
	return h.Execute(ctx, req)
}
