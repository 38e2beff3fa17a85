package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/db"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	queryCalls int
	docCalls   int
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, _ domain.QueryRequest) (domain.EmbeddingResult, error) {
	m.queryCalls++
	return m.result, m.err
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.docCalls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte) error
	ttlSet time.Duration
	sets   int
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	m.sets++
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.ttlSet = ttl
	return m.Set(ctx, key, value)
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder, ttl time.Duration) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, "models/text-embedding-004", ttl, nil, zap.NewNop())
	return ce, ms
}
