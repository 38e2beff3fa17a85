package ingest

import (
	"context"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/document"
)

// Parser turns a file into a document.
type Parser interface {
	ParseFile(ctx context.Context, path string, metadata map[string]string) (document.Document, error)
}

// Embedder embeds chunks in document mode.
type Embedder interface {
	EmbedDocuments(ctx context.Context, chunks []chunk.Chunk, batchSize int) ([][]float32, error)
}

// Store receives embedded chunks.
type Store interface {
	Insert(ctx context.Context, collection string, c chunk.Chunk, vector []float32) (string, error)
}
