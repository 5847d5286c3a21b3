// Package fundsource reads the fund master data that the indexer embeds.
package fundsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/models"

	"github.com/lib/pq"
)

// Source yields every fund to be indexed.
type Source interface {
	Load(ctx context.Context) ([]models.FundRecord, error)
}

// ==========================
// Postgres
// ==========================

type PostgresSource struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgresSource(db *sql.DB, table string, log logger.Logger) *PostgresSource {
	if table == "" {
		table = "mutual_funds"
	}
	return &PostgresSource{
		db:     db,
		table:  table,
		logger: log.WithFields(map[string]interface{}{"source": "postgres", "table": table}),
	}
}

func (s *PostgresSource) query() string {
	return `SELECT name, one_year_return, three_year_return, five_year_return,
		expense_ratio, aum, benchmark, category
		FROM ` + pq.QuoteIdentifier(s.table) + `
		WHERE name IS NOT NULL AND name <> ''
		ORDER BY name`
}

// Load reads the whole fund table. NULL columns stay absent on the record.
func (s *PostgresSource) Load(ctx context.Context) ([]models.FundRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryExecution, err)
	}
	defer rows.Close()

	var funds []models.FundRecord
	for rows.Next() {
		var (
			name                   string
			oneYr, threeYr, fiveYr sql.NullFloat64
			expense, aum           sql.NullFloat64
			benchmark, category    sql.NullString
		)
		if err := rows.Scan(&name, &oneYr, &threeYr, &fiveYr, &expense, &aum, &benchmark, &category); err != nil {
			return nil, fmt.Errorf("%w: scan fund row: %v", apperrors.ErrQueryExecution, err)
		}
		funds = append(funds, models.FundRecord{
			Name:            strings.TrimSpace(name),
			OneYearReturn:   nullFloat(oneYr),
			ThreeYearReturn: nullFloat(threeYr),
			FiveYearReturn:  nullFloat(fiveYr),
			ExpenseRatio:    nullFloat(expense),
			AUM:             nullFloat(aum),
			Benchmark:       nullString(benchmark),
			Category:        nullString(category),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryExecution, err)
	}

	s.logger.Info("funds loaded", map[string]interface{}{"count": len(funds)})
	return funds, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func nullString(v sql.NullString) *string {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	return models.String(strings.TrimSpace(v.String))
}

// ==========================
// JSON file
// ==========================

// FileSource reads a JSON array of fund records, using the same field names
// as the search index.
type FileSource struct {
	path   string
	logger logger.Logger
}

func NewFileSource(path string, log logger.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: log.WithFields(map[string]interface{}{"source": "file", "path": path}),
	}
}

func (s *FileSource) Load(ctx context.Context) ([]models.FundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Errorf("read fund file: %w", err))
	}

	var raw []models.FundRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Errorf("decode fund file %s: %w", s.path, err))
	}

	funds := raw[:0]
	skipped := 0
	for _, f := range raw {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			skipped++
			continue
		}
		f.Score = 0
		funds = append(funds, f)
	}
	if skipped > 0 {
		s.logger.Warn("skipped unnamed fund records", map[string]interface{}{"skipped": skipped})
	}
	s.logger.Info("funds loaded", map[string]interface{}{"count": len(funds)})
	return funds, nil
}
