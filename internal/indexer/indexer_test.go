package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/fundstore"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	funds []models.FundRecord
	err   error
}

func (s *stubSource) Load(context.Context) ([]models.FundRecord, error) {
	return s.funds, s.err
}

// fakeEmbedder returns a 3-dim vector per text and records batch sizes.
type fakeEmbedder struct {
	batches []int
	err     error
	short   bool
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.batches = append(e.batches, len(texts))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(len(texts[i])), 0, 1}
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

type mockStore struct{ mock.Mock }

func (m *mockStore) EnsureIndex(ctx context.Context, dims int) (bool, error) {
	args := m.Called(ctx, dims)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) BulkIndex(ctx context.Context, docs []fundstore.Document) (int, error) {
	args := m.Called(ctx, docs)
	return args.Int(0), args.Error(1)
}

func funds(n int) []models.FundRecord {
	out := make([]models.FundRecord, n)
	for i := range out {
		out[i] = models.FundRecord{Name: fmt.Sprintf("Fund %03d", i), OneYearReturn: models.Float(float64(i))}
	}
	return out
}

func TestIndexer_Run_Batches(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &mockStore{}
	store.On("EnsureIndex", mock.Anything, 3).Return(true, nil).Once()
	store.On("BulkIndex", mock.Anything, mock.MatchedBy(func(d []fundstore.Document) bool { return len(d) == 4 })).Return(4, nil).Twice()
	store.On("BulkIndex", mock.Anything, mock.MatchedBy(func(d []fundstore.Document) bool { return len(d) == 2 })).Return(1, nil).Once()

	var progress []int
	ix := New(&stubSource{funds: funds(10)}, embedder, store, 4, logger.NewTestLogger(t)).
		OnProgress(func(done, total int) {
			assert.Equal(t, 10, total)
			progress = append(progress, done)
		})
	report, err := ix.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{4, 8, 10}, progress)

	assert.Equal(t, []int{4, 4, 2}, embedder.batches)
	assert.Equal(t, 10, report.Loaded)
	assert.Equal(t, 9, report.Indexed)
	assert.Equal(t, 1, report.Rejected)
	assert.True(t, report.IndexCreated)
	store.AssertExpectations(t)

	first := store.Calls[1].Arguments.Get(1).([]fundstore.Document)
	assert.Equal(t, "Fund 000", first[0].Fund.Name)
	assert.Len(t, first[0].Embedding, 3)
}

func TestIndexer_Run_CollapsesDuplicateNames(t *testing.T) {
	records := []models.FundRecord{
		{Name: "Axis Bluechip Fund", OneYearReturn: models.Float(10)},
		{Name: "SBI Gold Fund"},
		{Name: "axis  bluechip fund", OneYearReturn: models.Float(12)},
	}
	store := &mockStore{}
	store.On("EnsureIndex", mock.Anything, 3).Return(false, nil)
	store.On("BulkIndex", mock.Anything, mock.Anything).Return(2, nil)

	report, err := New(&stubSource{funds: records}, &fakeEmbedder{}, store, 0, logger.NewTestLogger(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 2, report.Indexed)

	docs := store.Calls[1].Arguments.Get(1).([]fundstore.Document)
	require.Len(t, docs, 2)
	assert.Equal(t, 12.0, *docs[0].Fund.OneYearReturn)
}

func TestIndexer_Run_Failures(t *testing.T) {
	t.Run("source", func(t *testing.T) {
		_, err := New(&stubSource{err: apperrors.ErrQueryExecution}, &fakeEmbedder{}, &mockStore{}, 10, logger.NewTestLogger(t)).Run(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrQueryExecution))
	})

	t.Run("embedding", func(t *testing.T) {
		store := &mockStore{}
		_, err := New(&stubSource{funds: funds(3)}, &fakeEmbedder{err: apperrors.ErrEmbeddingFailed}, store, 10, logger.NewTestLogger(t)).Run(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrEmbeddingFailed))
		store.AssertNotCalled(t, "EnsureIndex", mock.Anything, mock.Anything)
	})

	t.Run("vector count mismatch", func(t *testing.T) {
		_, err := New(&stubSource{funds: funds(3)}, &fakeEmbedder{short: true}, &mockStore{}, 10, logger.NewTestLogger(t)).Run(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrEmbeddingFailed))
	})

	t.Run("index creation", func(t *testing.T) {
		store := &mockStore{}
		store.On("EnsureIndex", mock.Anything, 3).Return(false, apperrors.ErrIndexingFailed)
		_, err := New(&stubSource{funds: funds(3)}, &fakeEmbedder{}, store, 10, logger.NewTestLogger(t)).Run(context.Background())
		assert.True(t, errors.Is(err, apperrors.ErrIndexingFailed))
		store.AssertNotCalled(t, "BulkIndex", mock.Anything, mock.Anything)
	})
}

func TestIndexer_Run_Empty(t *testing.T) {
	store := &mockStore{}
	report, err := New(&stubSource{}, &fakeEmbedder{}, store, 10, logger.NewTestLogger(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Indexed)
	store.AssertNotCalled(t, "EnsureIndex", mock.Anything, mock.Anything)
}
