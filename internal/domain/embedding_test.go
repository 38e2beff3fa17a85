package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTextEmbedder struct {
	result BatchEmbeddingResult
	err    error
	got    []string
}

func (s *stubTextEmbedder) EmbedTexts(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.got = texts
	if s.err != nil {
		return BatchEmbeddingResult{}, s.err
	}
	if s.result.Embeddings != nil {
		return s.result, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func TestInstructionEmbedder_DocumentsUseDocumentInstruction(t *testing.T) {
	inner := &stubTextEmbedder{}
	emb := NewInstructionEmbedder(inner, "passage: ", "query: ")

	res, err := emb.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"passage: a", "passage: b"}, inner.got)
	assert.Len(t, res.Embeddings, 2)
	assert.Equal(t, 2, res.TotalTokens)
}

func TestInstructionEmbedder_QueryUsesQueryInstruction(t *testing.T) {
	inner := &stubTextEmbedder{}
	emb := NewInstructionEmbedder(inner, "passage: ", "query: ")

	res, err := emb.EmbedQuery(context.Background(), QueryRequest{Text: "who plays?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"query: who plays?"}, inner.got)
	assert.Equal(t, []float32{0}, res.Embedding)
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubTextEmbedder{err: innerErr}, "", "")

	_, err := emb.EmbedQuery(context.Background(), QueryRequest{Text: "x"})
	require.ErrorIs(t, err, innerErr)

	_, err = emb.EmbedDocuments(context.Background(), []string{"x"})
	require.ErrorIs(t, err, innerErr)
}

func TestInstructionEmbedder_QueryWrongCount(t *testing.T) {
	inner := &stubTextEmbedder{result: BatchEmbeddingResult{Embeddings: [][]float32{{1}, {2}}}}
	emb := NewInstructionEmbedder(inner, "", "")

	_, err := emb.EmbedQuery(context.Background(), QueryRequest{Text: "x"})
	require.ErrorIs(t, err, ErrEmbeddingProviderError)
}

func TestDimensionMismatchError_MatchesBothSentinels(t *testing.T) {
	err := NewDimensionMismatch("serie_a_matches", 768, 512)

	assert.ErrorIs(t, err, ErrVectorDimMismatch)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "expects 768, got 512")

	var dme *DimensionMismatchError
	require.ErrorAs(t, err, &dme)
	assert.Equal(t, "serie_a_matches", dme.Collection)
}
