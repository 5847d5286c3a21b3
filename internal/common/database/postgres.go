package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mf-search-workers/internal/common/config"
	apperrors "mf-search-workers/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient reads the fund master table. Only the indexer opens one;
// the query workers never touch Postgres.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeDatabaseConnectionFailed, fmt.Errorf("open postgres: %w", err))
	}

	maxOpen := cfg.MaxConnections
	if maxOpen <= 0 {
		maxOpen = 2
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return apperrors.New(apperrors.ErrCodeDatabaseConnectionFailed, fmt.Errorf("postgres ping failed: %w", err))
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
