package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/collection"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/document"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/parser"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/repository/vectorstore"
)

var testCfg = Config{Collection: "serie_a_matches", MaxChars: 100, Overlap: 10, BatchSize: 50}

func newDoc(n int) document.Document {
	return document.New(strings.Repeat("a", n), map[string]string{"source": "scraper_sky"})
}

func TestIngest_Success(t *testing.T) {
	store := &mockStore{}
	svc := New(&mockParser{doc: newDoc(280)}, &mockEmbedder{dim: 4}, store, testCfg, zap.NewNop())

	rep, err := svc.Ingest(context.Background(), "dataset.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, StateDone, rep.State)
	assert.Equal(t, []State{StateParsing, StateSplitting, StateEmbedding, StateStoring, StateDone}, rep.Transitions)
	assert.Equal(t, "scraper_sky", rep.Source)
	assert.Equal(t, 3, rep.Chunks)
	assert.Equal(t, 3, rep.Inserted)
	assert.Len(t, store.inserted, 3)
}

func TestIngestDocument_StartsAtSplitting(t *testing.T) {
	svc := New(&mockParser{}, &mockEmbedder{dim: 4}, &mockStore{}, testCfg, zap.NewNop())

	rep, err := svc.IngestDocument(context.Background(), newDoc(50))
	require.NoError(t, err)
	assert.Equal(t, StateSplitting, rep.Transitions[0])
	assert.Equal(t, 1, rep.Inserted)
}

func TestIngest_EmptyDocument(t *testing.T) {
	emb := &mockEmbedder{dim: 4}
	svc := New(&mockParser{}, emb, &mockStore{}, testCfg, zap.NewNop())

	rep, err := svc.Ingest(context.Background(), "empty.txt", map[string]string{"source": "s"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, rep.State)
	assert.Zero(t, rep.Chunks)
}

func TestIngest_Failures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		parser   *mockParser
		embedder *mockEmbedder
		store    *mockStore
		cfg      Config
		stage    State
		inserted int
	}{
		{
			name:     "parse",
			parser:   &mockParser{err: boom},
			embedder: &mockEmbedder{dim: 4},
			store:    &mockStore{},
			cfg:      testCfg,
			stage:    StateParsing,
		},
		{
			name:     "split",
			parser:   &mockParser{doc: newDoc(10)},
			embedder: &mockEmbedder{dim: 4},
			store:    &mockStore{},
			cfg:      Config{MaxChars: 10, Overlap: 10},
			stage:    StateSplitting,
		},
		{
			name:     "embed",
			parser:   &mockParser{doc: newDoc(280)},
			embedder: &mockEmbedder{err: boom},
			store:    &mockStore{},
			cfg:      testCfg,
			stage:    StateEmbedding,
		},
		{
			name:     "store keeps earlier inserts",
			parser:   &mockParser{doc: newDoc(280)},
			embedder: &mockEmbedder{dim: 4},
			store:    &mockStore{err: boom, failAfter: 2},
			cfg:      testCfg,
			stage:    StateStoring,
			inserted: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(tc.parser, tc.embedder, tc.store, tc.cfg, zap.NewNop())

			rep, err := svc.Ingest(context.Background(), "dataset.pdf", nil)

			var ierr *Error
			require.ErrorAs(t, err, &ierr)
			assert.Equal(t, tc.stage, ierr.Stage)
			assert.Equal(t, StateFailed, rep.State)
			assert.Equal(t, StateFailed, rep.Transitions[len(rep.Transitions)-1])
			assert.Equal(t, tc.inserted, rep.Inserted)
			assert.Len(t, tc.store.inserted, tc.inserted)
		})
	}
}

func TestIngest_EmbedFailureSkipsStoring(t *testing.T) {
	store := &mockStore{}
	svc := New(&mockParser{doc: newDoc(280)}, &mockEmbedder{err: domain.ErrRateLimited}, store, testCfg, zap.NewNop())

	rep, err := svc.Ingest(context.Background(), "dataset.pdf", nil)
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.NotContains(t, rep.Transitions, StateStoring)
	assert.Empty(t, store.inserted)
}

func TestIngest_TwiceDuplicatesChunks(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lineups.txt")
	require.NoError(t, os.WriteFile(path, []byte("Rossi (Goalkeeper)"), 0o600))

	store := vectorstore.New()
	col, err := collection.New("serie_a_matches", 4, collection.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, col))

	svc := New(parser.Default(), &mockEmbedder{dim: 4}, store, testCfg, zap.NewNop())
	for range 2 {
		_, err := svc.Ingest(ctx, path, map[string]string{"source": "scraper_sky"})
		require.NoError(t, err)
	}

	n, err := store.Count(ctx, "serie_a_matches")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngest_DimensionMismatchIsConfigError(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.New()
	col, err := collection.New("serie_a_matches", 768, collection.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, col))

	svc := New(&mockParser{doc: newDoc(50)}, &mockEmbedder{dim: 512}, store, testCfg, zap.NewNop())
	_, err = svc.Ingest(ctx, "dataset.pdf", nil)

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, StateStoring, ierr.Stage)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
