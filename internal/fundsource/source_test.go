package fundsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fundColumns = []string{
	"name", "one_year_return", "three_year_return", "five_year_return",
	"expense_ratio", "aum", "benchmark", "category",
}

func TestPostgresSource_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(fundColumns).
		AddRow("Axis Bluechip Fund", 14.2, 12.9, 15.1, 0.61, 33000.0, "NIFTY 50 TRI", "Large Cap").
		AddRow(" Quant Small Cap Fund ", 31.5, nil, nil, 0.77, nil, nil, "")

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "mutual_funds"`)).WillReturnRows(rows)

	src := NewPostgresSource(db, "", logger.NewTestLogger(t))
	funds, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, funds, 2)

	assert.Equal(t, "Axis Bluechip Fund", funds[0].Name)
	assert.Equal(t, 12.9, *funds[0].ThreeYearReturn)
	assert.Equal(t, "NIFTY 50 TRI", *funds[0].Benchmark)

	assert.Equal(t, "Quant Small Cap Fund", funds[1].Name)
	assert.Equal(t, 31.5, *funds[1].OneYearReturn)
	assert.Nil(t, funds[1].ThreeYearReturn)
	assert.Nil(t, funds[1].AUM)
	assert.Nil(t, funds[1].Benchmark)
	assert.Nil(t, funds[1].Category)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QuotesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "funds; drop table x"`)).
		WillReturnRows(sqlmock.NewRows(fundColumns))

	funds, err := NewPostgresSource(db, "funds; drop table x", logger.NewTestLogger(t)).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, funds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	_, err = NewPostgresSource(db, "mutual_funds", logger.NewTestLogger(t)).Load(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrQueryExecution))
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.CodeOf(err))
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "HDFC Mid-Cap Opportunities Fund", "one_year_return": 24.3, "aum": 61000, "benchmark": "NIFTY Midcap 150 TRI"},
		{"name": "  ", "one_year_return": 10},
		{"name": "SBI Gold Fund", "expense_ratio": 0.5, "score": 0.9}
	]`), 0o600))

	funds, err := NewFileSource(path, logger.NewTestLogger(t)).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, funds, 2)

	assert.Equal(t, "HDFC Mid-Cap Opportunities Fund", funds[0].Name)
	assert.Equal(t, 24.3, *funds[0].OneYearReturn)
	assert.Nil(t, funds[0].ExpenseRatio)
	assert.Equal(t, "SBI Gold Fund", funds[1].Name)
	assert.Zero(t, funds[1].Score)
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json"), logger.NewTestLogger(t)).Load(context.Background())
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "not an array"}`), 0o600))
	_, err = NewFileSource(path, logger.NewTestLogger(t)).Load(context.Background())
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}
