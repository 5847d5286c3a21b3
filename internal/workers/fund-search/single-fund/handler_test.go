// internal/workers/fund-search/single-fund/handler_test.go
package singlefund

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

type mockFinder struct{ mock.Mock }

func (m *mockFinder) FindFund(ctx context.Context, name string) (*models.FundRecord, error) {
	args := m.Called(ctx, name)
	if v := args.Get(0); v != nil {
		return v.(*models.FundRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubChat struct {
	reply    string
	err      error
	requests []llm.ChatRequest
}

func (s *stubChat) Complete(_ context.Context, req llm.ChatRequest) (string, error) {
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

func createTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func singleRequest(query string, funds ...string) *Input {
	return &Input{
		RequestID: "req-1",
		Query:     query,
		Intent:    models.Intent{Mode: models.ModeSingle, Funds: funds},
	}
}

var paragParikh = &models.FundRecord{
	Name:            "Parag Parikh Flexi Cap Fund",
	OneYearReturn:   models.Float(21.4),
	ThreeYearReturn: models.Float(18.2),
	ExpenseRatio:    models.Float(0.63),
	AUM:             models.Float(48000),
	Benchmark:       models.String("NIFTY 500 TRI"),
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	finder := &mockFinder{}
	finder.On("FindFund", mock.Anything, "Parag Parikh Flexi Cap").Return(paragParikh, nil).Once()
	chat := &stubChat{reply: "Parag Parikh Flexi Cap has delivered 21.40% over one year."}

	h := NewHandler(createTestConfig(), finder, chat, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), singleRequest("Is Parag Parikh Flexi Cap a good fund?", "Parag Parikh Flexi Cap"))
	require.NoError(t, err)

	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, models.ModeSingle, out.Mode)
	assert.True(t, strings.HasSuffix(out.Answer, models.Disclaimer))
	require.Len(t, out.Funds, 1)
	assert.Equal(t, "Parag Parikh Flexi Cap Fund", out.Funds[0].Name)
	assert.Empty(t, out.MissingFunds)

	require.Len(t, chat.requests, 1, "exactly one synthesis call")
	req := chat.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 0.3, req.Temperature)
	assert.False(t, req.JSON)
	assert.Contains(t, req.User, "Is Parag Parikh Flexi Cap a good fund?")
	assert.Contains(t, req.User, "21.40%")
	assert.Contains(t, req.User, "NIFTY 500 TRI")
	assert.Contains(t, req.User, `"5yr_return": "`+models.NotAvailable+`"`)
	assert.Contains(t, req.System, models.Disclaimer)

	finder.AssertExpectations(t)
}

func TestBuildPrompt_NameMismatchRule(t *testing.T) {
	assert.Contains(t, systemPrompt, "are clearly different funds")
	assert.Contains(t, systemPrompt, "does not exist in our fund database")

	user := buildUserPrompt("How is Quant Small Cap?", "Quant Small Cap", &models.FundRecord{Name: "Nippon India Small Cap Fund"})
	assert.Contains(t, user, "Fund asked about: Quant Small Cap\n")
	assert.Contains(t, user, "Fund found in the database: Nippon India Small Cap Fund\n")
}

func TestHandler_Execute_UsesFirstFundOnly(t *testing.T) {
	finder := &mockFinder{}
	finder.On("FindFund", mock.Anything, "Axis Bluechip").Return(&models.FundRecord{Name: "Axis Bluechip Fund"}, nil).Once()

	h := NewHandler(createTestConfig(), finder, &stubChat{reply: "ok"}, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), singleRequest("how is it", " ", "Axis Bluechip", "HDFC Top 100"))
	require.NoError(t, err)
	finder.AssertExpectations(t)
}

func TestHandler_Execute_UnknownFund(t *testing.T) {
	finder := &mockFinder{}
	finder.On("FindFund", mock.Anything, "XYZ Imaginary Fund").Return(nil, nil)
	chat := &stubChat{reply: "should not be used"}

	h := NewHandler(createTestConfig(), finder, chat, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), singleRequest("Is XYZ Imaginary Fund good?", "XYZ Imaginary Fund"))
	require.NoError(t, err)

	assert.Contains(t, out.Answer, "does not exist")
	assert.True(t, strings.HasSuffix(out.Answer, models.Disclaimer))
	assert.Equal(t, []string{"XYZ Imaginary Fund"}, out.MissingFunds)
	assert.Empty(t, out.Funds)
	assert.NotContains(t, out.Answer, "%", "no fabricated metric")
	assert.Empty(t, chat.requests)
}

func TestHandler_Execute_InvalidIntent(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"no funds", singleRequest("is it good?")},
		{"blank funds", singleRequest("is it good?", "", "  ")},
		{"wrong mode", &Input{Query: "x", Intent: models.Intent{Mode: models.ModeFiltered, Funds: []string{"A"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), &mockFinder{}, &stubChat{}, logger.NewTestLogger(t))
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidIntent))
		})
	}
}

func TestHandler_Execute_PropagatesFailures(t *testing.T) {
	t.Run("retrieval", func(t *testing.T) {
		finder := &mockFinder{}
		finder.On("FindFund", mock.Anything, mock.Anything).Return(nil, apperrors.ErrSearchQueryFailed)

		h := NewHandler(createTestConfig(), finder, &stubChat{}, logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), singleRequest("q", "Quant Small Cap"))
		assert.True(t, errors.Is(err, apperrors.ErrSearchQueryFailed))
	})

	t.Run("synthesis", func(t *testing.T) {
		finder := &mockFinder{}
		finder.On("FindFund", mock.Anything, mock.Anything).Return(paragParikh, nil)

		h := NewHandler(createTestConfig(), finder, &stubChat{err: apperrors.ErrLLMSynthesisFailed}, logger.NewTestLogger(t))
		out, err := h.Execute(context.Background(), singleRequest("q", "Parag Parikh Flexi Cap"))
		assert.Nil(t, out)
		assert.True(t, errors.Is(err, apperrors.ErrLLMSynthesisFailed))
	})
}

func TestHandler_Execute_ModeIsOptional(t *testing.T) {
	finder := &mockFinder{}
	finder.On("FindFund", mock.Anything, "Axis Bluechip").Return(&models.FundRecord{Name: "Axis Bluechip Fund"}, nil)

	h := NewHandler(createTestConfig(), finder, &stubChat{reply: "fine"}, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{Query: "q", Intent: models.Intent{Mode: "SINGLE", Funds: []string{"Axis Bluechip"}}})
	require.NoError(t, err)
	assert.Equal(t, models.ModeSingle, out.Mode)

	out, err = h.Execute(context.Background(), &Input{Query: "q", Intent: models.Intent{Funds: []string{"Axis Bluechip"}}})
	require.NoError(t, err)
	assert.Equal(t, models.ModeSingle, out.Mode)
}
