package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mf-search-workers/internal/common/config"
	apperrors "mf-search-workers/internal/common/errors"
	httpx "mf-search-workers/internal/common/http"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient holds the cluster client behind the fund index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch builds a client on the shared pooled transport. Busy and
// unavailable responses are retried by the client itself.
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.GetAddresses()
	if len(addresses) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeElasticsearchConnectionFailed, fmt.Errorf("no elasticsearch address configured"))
	}

	esCfg := elasticsearch.Config{
		Addresses:     addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Transport:     httpx.NewTransport(httpx.DefaultOptions()),
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests},
		MaxRetries:    3,
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeElasticsearchConnectionFailed, fmt.Errorf("create client: %w", err))
	}
	return &ElasticsearchClient{Client: es}, nil
}

// Ping checks the cluster answers within five seconds.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return apperrors.New(apperrors.ErrCodeElasticsearchConnectionFailed, fmt.Errorf("elasticsearch ping failed: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.New(apperrors.ErrCodeElasticsearchConnectionFailed, fmt.Errorf("elasticsearch ping error: %s", res.Status()))
	}
	return nil
}
