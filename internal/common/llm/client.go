// Package llm wraps the OpenAI embedding and chat completion endpoints used by
// the fund search workers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mf-search-workers/internal/common/config"
	httpx "mf-search-workers/internal/common/http"
	"mf-search-workers/internal/common/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	APIKey             string
	BaseURL            string
	EmbeddingModel     string
	EmbeddingBatchSize int
	Seed               int64
	Timeout            time.Duration
	MaxRetries         int
}

// ConfigFromApp maps the openai section of the application config.
func ConfigFromApp(cfg config.OpenAIConfig) Config {
	return Config{
		APIKey:             cfg.APIKey,
		BaseURL:            cfg.BaseURL,
		EmbeddingModel:     cfg.EmbeddingModel,
		EmbeddingBatchSize: cfg.EmbeddingBatchSize,
		Seed:               cfg.Seed,
		Timeout:            config.GetDuration(cfg.Timeout),
		MaxRetries:         cfg.MaxRetries,
	}
}

// Client talks to the OpenAI API. It is safe for concurrent use.
type Client struct {
	api    openai.Client
	config Config
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: missing api key")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 500
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(httpx.NewClient(httpx.Options{Timeout: cfg.Timeout})),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		api:    openai.NewClient(opts...),
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "llm"}),
	}, nil
}

// isTimeout reports whether err came from a deadline rather than the API.
func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// statusCode extracts the HTTP status of an API error, or 0.
func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
