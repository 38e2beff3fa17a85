package domain

import (
	"context"
	"fmt"
)

// TaskType tells the provider which side of retrieval a text is on.
type TaskType string

const (
	// TaskRetrievalDocument embeds passages that will be stored and searched.
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
	// TaskRetrievalQuery embeds questions that search stored passages.
	TaskRetrievalQuery TaskType = "RETRIEVAL_QUERY"
)

// QueryRequest is the single typed input for query embedding.
type QueryRequest struct {
	Text string
}

// Embedder is the shared vectorization contract between layers.
// Both capabilities are backed by one provider; they differ only in task type.
type Embedder interface {
	// EmbedDocuments vectorizes texts in document mode with a single provider call.
	EmbedDocuments(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
	// EmbedQuery vectorizes one question in query mode.
	EmbedQuery(ctx context.Context, req QueryRequest) (EmbeddingResult, error)
}

// TextEmbedder vectorizes raw texts with no notion of task type.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder gives a TextEmbedder both retrieval modes by prepending
// a per-mode instruction to every text.
type InstructionEmbedder struct {
	inner               TextEmbedder
	documentInstruction string
	queryInstruction    string
}

// NewInstructionEmbedder creates the two-mode decorator.
func NewInstructionEmbedder(inner TextEmbedder, documentInstruction, queryInstruction string) *InstructionEmbedder {
	return &InstructionEmbedder{
		inner:               inner,
		documentInstruction: documentInstruction,
		queryInstruction:    queryInstruction,
	}
}

// EmbedDocuments prepends the document instruction to each text.
func (e *InstructionEmbedder) EmbedDocuments(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.documentInstruction + t
	}
	res, err := e.inner.EmbedTexts(ctx, prefixed)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction embed documents: %w", err)
	}
	return res, nil
}

// EmbedQuery prepends the query instruction.
func (e *InstructionEmbedder) EmbedQuery(ctx context.Context, req QueryRequest) (EmbeddingResult, error) {
	res, err := e.inner.EmbedTexts(ctx, []string{e.queryInstruction + req.Text})
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed query: %w", err)
	}
	if len(res.Embeddings) != 1 {
		return EmbeddingResult{}, fmt.Errorf("expected 1 embedding, got %d: %w",
			len(res.Embeddings), ErrEmbeddingProviderError)
	}
	return EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
