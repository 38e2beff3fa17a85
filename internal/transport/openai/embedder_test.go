package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

func newTestEmbedder(t *testing.T, h http.HandlerFunc) *Embedder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Model:      "test-model",
		Dimensions: 2,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_EmbedTexts_RestoresOrder(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"hello", "world"}, req.Input)
		assert.Equal(t, 2, req.Dimensions)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"test-model",
			"data":[{"object":"embedding","embedding":[0.3,0.4],"index":1},
			        {"object":"embedding","embedding":[0.1,0.2],"index":0}],
			"usage":{"prompt_tokens":20,"total_tokens":20}}`))
	})

	res, err := emb.EmbedTexts(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, res.Embeddings, 2)
	assert.InDelta(t, 0.1, res.Embeddings[0][0], 1e-6)
	assert.InDelta(t, 0.3, res.Embeddings[1][0], 1e-6)
	assert.Equal(t, 20, res.TotalTokens)
}

func TestEmbedder_EmbedTexts_Empty(t *testing.T) {
	emb := newTestEmbedder(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("provider must not be called")
	})

	res, err := emb.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Embeddings)
}

func TestEmbedder_EmbedTexts_CountMismatch(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1],"index":0}],"usage":{"total_tokens":5}}`))
	})

	_, err := emb.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
}

func TestEmbedder_RateLimited(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	})

	_, err := emb.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
}

func TestEmbedder_WithInstructionModes(t *testing.T) {
	var inputs [][]string
	emb := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		inputs = append(inputs, req.Input)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0],"index":0}]}`))
	})

	two := domain.NewInstructionEmbedder(emb, "passage: ", "query: ")
	_, err := two.EmbedQuery(context.Background(), domain.QueryRequest{Text: "Rossi?"})
	require.NoError(t, err)
	_, err = two.EmbedDocuments(context.Background(), []string{"Rossi starts"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"query: Rossi?"}, {"passage: Rossi starts"}}, inputs)
}

func TestExtractDetail(t *testing.T) {
	assert.Equal(t, "bad model", extractDetail([]byte(`{"detail":"bad model"}`)))
	assert.Empty(t, extractDetail([]byte(`not json`)))
}
