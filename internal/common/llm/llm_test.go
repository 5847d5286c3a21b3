package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake OpenAI server
// ==========================

type fakeOpenAI struct {
	mu           sync.Mutex
	embedCalls   [][]string
	chatBodies   []map[string]interface{}
	chatReply    string
	status       int
	delay        time.Duration
	reverseOrder bool
}

func (f *fakeOpenAI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if f.status != 0 && f.status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			var inputs []string
			for _, in := range body["input"].([]interface{}) {
				inputs = append(inputs, in.(string))
			}
			f.mu.Lock()
			f.embedCalls = append(f.embedCalls, inputs)
			f.mu.Unlock()

			data := make([]map[string]interface{}, 0, len(inputs))
			for i, in := range inputs {
				data = append(data, map[string]interface{}{
					"object":    "embedding",
					"index":     i,
					"embedding": []float64{float64(len(in)), float64(i)},
				})
			}
			if f.reverseOrder {
				for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
					data[i], data[j] = data[j], data[i]
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"object": "list",
				"data":   data,
				"model":  body["model"],
				"usage":  map[string]interface{}{"prompt_tokens": 1, "total_tokens": 1},
			})

		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			f.mu.Lock()
			f.chatBodies = append(f.chatBodies, body)
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":      "chatcmpl-test",
				"object":  "chat.completion",
				"created": 1,
				"model":   body["model"],
				"choices": []map[string]interface{}{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]interface{}{"role": "assistant", "content": f.chatReply},
				}},
				"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, fake *fakeOpenAI, batchSize int) *Client {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIKey:             "test-key",
		BaseURL:            server.URL,
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingBatchSize: batchSize,
		Seed:               1,
		Timeout:            5 * time.Second,
		MaxRetries:         0,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return client
}

// ==========================
// Client construction
// ==========================

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{}, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, 500, client.config.EmbeddingBatchSize)
	assert.Equal(t, "text-embedding-3-small", client.config.EmbeddingModel)
	assert.Equal(t, int64(1), client.config.Seed)
}

// ==========================
// Embeddings
// ==========================

func TestClient_Embed_BatchesPreserveOrder(t *testing.T) {
	fake := &fakeOpenAI{reverseOrder: true}
	client := newTestClient(t, fake, 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := client.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.Equal(t, float64(len(text)), vectors[i][0], "vector %d out of order", i)
	}

	require.Len(t, fake.embedCalls, 3)
	assert.Equal(t, []string{"a", "bb"}, fake.embedCalls[0])
	assert.Equal(t, []string{"ccc", "dddd"}, fake.embedCalls[1])
	assert.Equal(t, []string{"eeeee"}, fake.embedCalls[2])
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	fake := &fakeOpenAI{}
	client := newTestClient(t, fake, 500)

	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, fake.embedCalls)
}

func TestClient_Embed_ServiceFailure(t *testing.T) {
	fake := &fakeOpenAI{status: http.StatusInternalServerError}
	client := newTestClient(t, fake, 500)

	_, err := client.Embed(context.Background(), []string{"large cap"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmbeddingFailed))
}

// ==========================
// Chat completions
// ==========================

func TestClient_Complete_SendsDeterministicParams(t *testing.T) {
	fake := &fakeOpenAI{chatReply: "  {\"mode\":\"single\"}  "}
	client := newTestClient(t, fake, 500)

	out, err := client.Complete(context.Background(), ChatRequest{
		Purpose:     "classify",
		Model:       "gpt-4o-mini",
		System:      "classify this",
		User:        "Is Axis Bluechip good?",
		Temperature: 0,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"mode":"single"}`, out)

	require.Len(t, fake.chatBodies, 1)
	body := fake.chatBodies[0]
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	assert.Equal(t, float64(1), body["seed"])
	assert.Equal(t, "json_object", body["response_format"].(map[string]interface{})["type"])

	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", msgs[1].(map[string]interface{})["role"])
}

func TestClient_Complete_NoJSONFormatForSynthesis(t *testing.T) {
	fake := &fakeOpenAI{chatReply: "answer"}
	client := newTestClient(t, fake, 500)

	_, err := client.Complete(context.Background(), ChatRequest{
		Purpose:     "single",
		Model:       "gpt-4o",
		System:      "summarize",
		Temperature: 0.3,
	})
	require.NoError(t, err)

	body := fake.chatBodies[0]
	assert.Equal(t, 0.3, body["temperature"])
	_, hasFormat := body["response_format"]
	assert.False(t, hasFormat)
	assert.Len(t, body["messages"].([]interface{}), 1)
}

func TestClient_Complete_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, &fakeOpenAI{status: http.StatusInternalServerError}, 500)
		_, err := client.Complete(context.Background(), ChatRequest{Purpose: "single", Model: "gpt-4o", System: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrLLMSynthesisFailed))
	})

	t.Run("deadline", func(t *testing.T) {
		client := newTestClient(t, &fakeOpenAI{delay: 300 * time.Millisecond, chatReply: "late"}, 500)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.Complete(ctx, ChatRequest{Purpose: "single", Model: "gpt-4o", System: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrLLMTimeout))
	})
}

// ==========================
// Embedding cache
// ==========================

type countingEmbedder struct {
	calls [][]string
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	c.calls = append(c.calls, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text))}
	}
	return out, nil
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedEmbedder_HitsAndMisses(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := &countingEmbedder{}
	cached := NewCachedEmbedder(next, rdb, "text-embedding-3-small", time.Hour, logger.NewTestLogger(t))

	ctx := context.Background()
	first, err := cached.Embed(ctx, []string{"large cap", "mid cap"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{9}, {7}}, first)
	require.Len(t, next.calls, 1)

	second, err := cached.Embed(ctx, []string{"mid cap", "small cap", "large cap"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{7}, {9}, {9}}, second)
	require.Len(t, next.calls, 2)
	assert.Equal(t, []string{"small cap"}, next.calls[1])

	key := cached.key("large cap")
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestCachedEmbedder_CacheReadFailureFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &countingEmbedder{}
	cached := NewCachedEmbedder(next, rdb, "m", time.Hour, logger.NewTestLogger(t))

	mock.ExpectMGet(cached.key("flexi cap")).SetErr(errors.New("connection refused"))

	vectors, err := cached.Embed(context.Background(), []string{"flexi cap"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{9}}, vectors)
	assert.Len(t, next.calls, 1)
}

func TestCachedEmbedder_PropagatesEmbeddingError(t *testing.T) {
	_, rdb := setupRedis(t)
	next := &countingEmbedder{err: apperrors.ErrEmbeddingFailed}
	cached := NewCachedEmbedder(next, rdb, "m", time.Hour, logger.NewTestLogger(t))

	_, err := cached.Embed(context.Background(), []string{"index fund"})
	assert.True(t, errors.Is(err, apperrors.ErrEmbeddingFailed))
}
