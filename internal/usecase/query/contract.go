package query

import (
	"context"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/search/result"
)

// QueryEmbedder embeds a question; failures yield an empty vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, req domain.QueryRequest) []float32
}

// Retriever finds the chunks nearest to a query vector.
type Retriever interface {
	Search(ctx context.Context, collection string, query []float32, k int) ([]result.Result, error)
}
