package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockProvider struct {
	err error
}

func (m *mockProvider) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockProvider{}, &mockProvider{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, c := range []string{ComponentVectorStore, ComponentEmbedding, ComponentGeneration} {
		if r.Checks[c] != CheckOK {
			t.Errorf("expected %s %q, got %q", c, CheckOK, r.Checks[c])
		}
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("closed")}, &mockProvider{}, &mockProvider{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[ComponentVectorStore] != CheckError {
		t.Errorf("expected vector_store %q, got %q", CheckError, r.Checks[ComponentVectorStore])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New(&mockPinger{}, &mockProvider{err: errors.New("timeout")}, &mockProvider{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[ComponentEmbedding])
	}
	if r.Checks[ComponentGeneration] != CheckOK {
		t.Errorf("expected generation %q, got %q", CheckOK, r.Checks[ComponentGeneration])
	}
}

func TestCheck_GenerationError(t *testing.T) {
	svc := New(&mockPinger{}, nil, &mockProvider{err: errors.New("401")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if _, ok := r.Checks[ComponentEmbedding]; ok {
		t.Error("expected no embedding check")
	}
}
