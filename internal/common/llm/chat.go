package llm

import (
	"context"
	"fmt"
	"strings"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/metrics"
	"mf-search-workers/internal/common/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
)

// ChatCompleter produces one completion for one request.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is a single-turn completion. Purpose labels metrics and spans.
type ChatRequest struct {
	Purpose     string
	Model       string
	System      string
	User        string
	Temperature float64
	JSON        bool
}

// Complete sends one chat completion with the configured seed. Deadline
// failures wrap ErrLLMTimeout, everything else ErrLLMSynthesisFailed.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (out string, err error) {
	ctx, span := observability.StartSpan(ctx, "llm.chat",
		attribute.String("llm.purpose", req.Purpose),
		attribute.String("llm.model", req.Model),
	)
	defer func() {
		observability.EndSpan(span, err)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.LLMCalls.WithLabelValues(req.Purpose, status).Inc()
	}()

	params := c.buildParams(req)

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Warn("chat completion failed", map[string]interface{}{
			"purpose": req.Purpose,
			"model":   req.Model,
			"status":  statusCode(err),
			"error":   err.Error(),
		})
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("%w: %s: %v", apperrors.ErrLLMTimeout, req.Purpose, err)
		}
		return "", fmt.Errorf("%w: %s: %v", apperrors.ErrLLMSynthesisFailed, req.Purpose, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s: no choices returned", apperrors.ErrLLMSynthesisFailed, req.Purpose)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("chat completion finished", map[string]interface{}{
		"purpose":          req.Purpose,
		"model":            resp.Model,
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	})
	return content, nil
}

func (c *Client) buildParams(req ChatRequest) openai.ChatCompletionNewParams {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	if req.User != "" {
		msgs = append(msgs, openai.UserMessage(req.User))
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: param.NewOpt(req.Temperature),
		Seed:        param.NewOpt(c.config.Seed),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}
