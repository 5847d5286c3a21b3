// internal/workers/fund-search/classify-intent/handler_test.go
package classifyintent

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/llm"
	"mf-search-workers/internal/common/logger"
	"mf-search-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test helpers
// ==========================

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

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

const singleReply = `{"mode":"single","funds":["Parag Parikh Flexi Cap"],"semantic_query":null,
	"filters":{"min_1yr_return":null,"min_3yr_return":null,"max_expense_ratio":null,"category":null}}`

const filteredReply = `{"mode":"filtered","funds":null,"semantic_query":"large cap",
	"filters":{"min_1yr_return":null,"min_3yr_return":null,"max_expense_ratio":null,"category":null}}`

// ==========================
// Reply parsing
// ==========================

func TestParseIntent_SingleFund(t *testing.T) {
	intent, err := ParseIntent(singleReply)
	require.NoError(t, err)

	assert.Equal(t, models.ModeSingle, intent.Mode)
	assert.Equal(t, []string{"Parag Parikh Flexi Cap"}, intent.Funds)
	assert.Nil(t, intent.SemanticQuery)
	assert.True(t, intent.Filters.Empty())
}

func TestParseIntent_ThemeSearch(t *testing.T) {
	intent, err := ParseIntent(filteredReply)
	require.NoError(t, err)

	assert.Equal(t, models.ModeFiltered, intent.Mode)
	assert.Equal(t, "large cap", intent.Theme())
	assert.Nil(t, intent.Funds)
}

func TestParseIntent_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, intent *models.Intent)
	}{
		{
			name:  "placeholder words become absent",
			reply: `{"mode":"filtered","funds":["none"],"semantic_query":"momentum","filters":{"min_1yr_return":"none","category":"N/A"}}`,
			check: func(t *testing.T, intent *models.Intent) {
				assert.Nil(t, intent.Funds)
				assert.Nil(t, intent.Filters.Min1YrReturn)
				assert.Nil(t, intent.Filters.Category)
				assert.Equal(t, "momentum", intent.Theme())
			},
		},
		{
			name:  "numeric strings are parsed",
			reply: `{"mode":"filtered","semantic_query":"small cap","filters":{"min_1yr_return":"15%","max_expense_ratio":" 1.2 "}}`,
			check: func(t *testing.T, intent *models.Intent) {
				require.NotNil(t, intent.Filters.Min1YrReturn)
				assert.Equal(t, 15.0, *intent.Filters.Min1YrReturn)
				assert.Equal(t, 1.2, *intent.Filters.MaxExpenseRatio)
			},
		},
		{
			name:  "mode is case-insensitive",
			reply: `{"mode":" Comparison ","funds":["HDFC Top 100","ICICI Bluechip Fund"],"semantic_query":"bluechip"}`,
			check: func(t *testing.T, intent *models.Intent) {
				assert.Equal(t, models.ModeComparison, intent.Mode)
				assert.Len(t, intent.Funds, 2)
				assert.Nil(t, intent.SemanticQuery, "comparisons never carry a theme")
			},
		},
		{
			name:  "single fund given as a string",
			reply: "```json\n{\"mode\":\"single\",\"funds\":\"Axis Bluechip\"}\n```",
			check: func(t *testing.T, intent *models.Intent) {
				assert.Equal(t, []string{"Axis Bluechip"}, intent.Funds)
			},
		},
		{
			name:  "null filters object",
			reply: `{"mode":"single","funds":["Quant Small Cap"],"filters":null}`,
			check: func(t *testing.T, intent *models.Intent) {
				assert.True(t, intent.Filters.Empty())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := ParseIntent(tt.reply)
			require.NoError(t, err)
			tt.check(t, intent)
		})
	}
}

func TestParseIntent_Rejects(t *testing.T) {
	replies := map[string]string{
		"not json":           "Sure! Here is your JSON",
		"unknown mode":       `{"mode":"ranking"}`,
		"missing mode":       `{"funds":["Axis Bluechip"]}`,
		"non-numeric filter": `{"mode":"filtered","semantic_query":"x","filters":{"min_1yr_return":"high"}}`,
		"negative expense":   `{"mode":"filtered","semantic_query":"x","filters":{"max_expense_ratio":-1}}`,
		"array reply":        `[{"mode":"single"}]`,
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIntent(reply)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrIntentParsingFailed), "got %v", err)
		})
	}
}

func TestParseIntent_NamesBadMode(t *testing.T) {
	_, err := ParseIntent(`{"mode":"ranking","funds":null}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode ranking is not one of single, comparison, filtered")

	_, err = ParseIntent(`{"funds":["Axis Bluechip"]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not one of single, comparison, filtered")
}

// ==========================
// Classification
// ==========================

func TestHandler_Classify_SendsDeterministicRequest(t *testing.T) {
	chat := &stubChat{reply: singleReply}
	h := NewHandler(createTestConfig(), chat, nil, logger.NewTestLogger(t))

	intent, err := h.Classify(context.Background(), "  Is Parag Parikh Flexi Cap a good fund?  ")
	require.NoError(t, err)
	assert.Equal(t, models.ModeSingle, intent.Mode)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 0.0, req.Temperature)
	assert.True(t, req.JSON)
	assert.Equal(t, "Is Parag Parikh Flexi Cap a good fund?", req.User)
	assert.Contains(t, req.System, `"semantic_query"`)
}

func TestHandler_Classify_PropagatesErrors(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		h := NewHandler(createTestConfig(), &stubChat{err: apperrors.ErrLLMTimeout}, nil, logger.NewTestLogger(t))
		_, err := h.Classify(context.Background(), "top momentum funds")
		assert.True(t, errors.Is(err, apperrors.ErrLLMTimeout))
	})

	t.Run("unparseable reply", func(t *testing.T) {
		h := NewHandler(createTestConfig(), &stubChat{reply: "{"}, nil, logger.NewTestLogger(t))
		_, err := h.Classify(context.Background(), "top momentum funds")
		assert.Equal(t, apperrors.ErrCodeIntentParsingFailed, apperrors.CodeOf(err))
	})

	t.Run("empty query", func(t *testing.T) {
		chat := &stubChat{reply: singleReply}
		h := NewHandler(createTestConfig(), chat, nil, logger.NewTestLogger(t))
		_, err := h.Classify(context.Background(), "   ")
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
		assert.Empty(t, chat.requests)
	})
}

func TestHandler_Classify_UsesCache(t *testing.T) {
	mr, rdb := setupRedis(t)
	chat := &stubChat{reply: filteredReply}
	h := NewHandler(createTestConfig(), chat, rdb, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := h.Classify(ctx, "Top large cap funds")
	require.NoError(t, err)
	second, err := h.Classify(ctx, "Top large cap funds")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, chat.requests, 1)

	key := h.cache.key("Top large cap funds")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestHandler_Classify_IgnoresCorruptCacheEntry(t *testing.T) {
	mr, rdb := setupRedis(t)
	chat := &stubChat{reply: filteredReply}
	h := NewHandler(createTestConfig(), chat, rdb, logger.NewTestLogger(t))

	require.NoError(t, mr.Set(h.cache.key("Top large cap funds"), "not json"))

	intent, err := h.Classify(context.Background(), "Top large cap funds")
	require.NoError(t, err)
	assert.Equal(t, models.ModeFiltered, intent.Mode)
	assert.Len(t, chat.requests, 1)
}

func TestHandler_Classify_CacheOutageIsNotFatal(t *testing.T) {
	mr, rdb := setupRedis(t)
	chat := &stubChat{reply: singleReply}
	h := NewHandler(createTestConfig(), chat, rdb, logger.NewTestLogger(t))
	mr.Close()

	intent, err := h.Classify(context.Background(), "Is Axis Bluechip good?")
	require.NoError(t, err)
	assert.Equal(t, models.ModeSingle, intent.Mode)
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute(t *testing.T) {
	t.Run("assigns a request id and exposes the mode", func(t *testing.T) {
		h := NewHandler(createTestConfig(), &stubChat{reply: filteredReply}, nil, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{Query: "Top large cap funds"})
		require.NoError(t, err)
		assert.NotEmpty(t, out.RequestID)
		assert.Equal(t, models.ModeFiltered, out.Mode)
		assert.Equal(t, "large cap", out.Intent.Theme())
	})

	t.Run("keeps a caller request id", func(t *testing.T) {
		h := NewHandler(createTestConfig(), &stubChat{reply: singleReply}, nil, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{RequestID: "req-7", Query: "Is Parag Parikh Flexi Cap a good fund?"})
		require.NoError(t, err)
		assert.Equal(t, "req-7", out.RequestID)
	})

	t.Run("rejects a blank query", func(t *testing.T) {
		h := NewHandler(createTestConfig(), &stubChat{}, nil, logger.NewTestLogger(t))

		_, err := h.Execute(context.Background(), &Input{Query: " \n "})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
		assert.Contains(t, apperrors.FromError(err).Details, "query must be between 1 and 2000 characters")
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := createTestConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Model = ""
	assert.Error(t, cfg.Validate())

	cfg = createTestConfig()
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}
