package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/db"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/db/memory"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
)

func query(text string) domain.QueryRequest { return domain.QueryRequest{Text: text} }

func TestEmbedQuery_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 10}}
	ce, ms := newTestCachedEmbedder(t, inner, time.Hour)

	result, err := ce.EmbedQuery(context.Background(), query("who starts?"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, result.Embedding)
	assert.Equal(t, 10, result.TotalTokens)
	assert.Equal(t, 1, ms.sets)
	assert.Equal(t, time.Hour, ms.ttlSet)
}

func TestEmbedQuery_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ce, ms := newTestCachedEmbedder(t, inner, 0)

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return cached, nil }

	result, err := ce.EmbedQuery(context.Background(), query("who starts?"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, result.Embedding)
	assert.Zero(t, result.TotalTokens)
	assert.Zero(t, inner.queryCalls)
}

func TestEmbedQuery_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, ms := newTestCachedEmbedder(t, inner, 0)

	_, err := ce.EmbedQuery(context.Background(), query("q"))
	require.Error(t, err)
	assert.Zero(t, ms.sets)
}

func TestEmbedQuery_EmptyVectorNotCached(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner, 0)

	_, err := ce.EmbedQuery(context.Background(), query("q"))
	require.NoError(t, err)
	assert.Zero(t, ms.sets)
}

func TestEmbedQuery_StoreErrorsAreSoft(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner, 0)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("conn reset")}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte) error { return errors.New("read only") }

	res, err := ce.EmbedQuery(context.Background(), query("q"))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, res.Embedding)
}

func TestEmbedQuery_CorruptEntryFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner, 0)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	_, err := ce.EmbedQuery(context.Background(), query("q"))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.queryCalls)
}

func TestEmbedDocuments_NeverCached(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner, 0)

	for range 2 {
		res, err := ce.EmbedDocuments(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, res.Embeddings, 2)
	}
	assert.Equal(t, 2, inner.docCalls)
	assert.Zero(t, ms.sets)
}

func TestCachedEmbedder_WithMemoryStore(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.25, -1}}}
	ce := New(inner, memory.NewStore(), "m", 0, counter, zap.NewNop())

	for range 3 {
		res, err := ce.EmbedQuery(context.Background(), query("Chi gioca?"))
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, -1}, res.Embedding)
	}

	assert.Equal(t, 1, inner.queryCalls)
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("miss")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(counter.WithLabelValues("hit")), 0)
}

func TestCacheKey_NamespaceSeparatesModels(t *testing.T) {
	a := New(&mockEmbedder{}, &mockKVStore{}, "model-a", 0, nil, zap.NewNop())
	b := New(&mockEmbedder{}, &mockKVStore{}, "model-b", 0, nil, zap.NewNop())

	assert.NotEqual(t, a.cacheKey("q"), b.cacheKey("q"))
	assert.Equal(t, a.cacheKey("q"), a.cacheKey("q"))
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0, -1.5, 3.25}
	got, err := bytesToVector(vectorToCacheBytes(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}
