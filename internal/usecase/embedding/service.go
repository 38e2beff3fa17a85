package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
)

const (
	// DefaultBatchSize is used when the caller passes batchSize <= 0.
	DefaultBatchSize = 50
	// DefaultMaxBatchSize is the provider ceiling for one request.
	DefaultMaxBatchSize = 100
)

const probeText = "dimension probe"

// Config tunes batching and pacing for a Service.
type Config struct {
	Provider     string
	Model        string
	BatchSize    int
	MaxBatchSize int
	// Limiter paces provider calls; nil disables pacing.
	Limiter *rate.Limiter
}

// Service wraps a domain.Embedder with batching, pacing and the query failure policy.
// Transport metrics (requests, duration, tokens) are recorded by the provider adapters.
type Service struct {
	inner        domain.Embedder
	provider     string
	model        string
	batchSize    int
	maxBatchSize int
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// NewService creates an embedding Service.
func NewService(inner domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Service{
		inner:        inner,
		provider:     cfg.Provider,
		model:        cfg.Model,
		batchSize:    min(batch, maxBatch),
		maxBatchSize: maxBatch,
		limiter:      cfg.Limiter,
		logger:       logger,
	}
}

// BatchSize resolves the effective batch size for a requested one.
func (s *Service) BatchSize(requested int) int {
	if requested <= 0 {
		return s.batchSize
	}
	return min(requested, s.maxBatchSize)
}

// EmbedDocuments embeds chunks in document mode, one provider call per batch.
// The result holds one vector per chunk, in chunk order.
func (s *Service) EmbedDocuments(ctx context.Context, chunks []chunk.Chunk, batchSize int) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	size := s.BatchSize(batchSize)
	texts := chunk.Texts(chunks)
	vectors := make([][]float32, 0, len(texts))
	start := time.Now()
	var totalTokens int

	for offset := 0; offset < len(texts); offset += size {
		end := min(offset+size, len(texts))
		batch := texts[offset:end]

		if err := s.wait(ctx); err != nil {
			return nil, fmt.Errorf("embed batch at offset %d: %w", offset, err)
		}

		res, err := s.inner.EmbedDocuments(ctx, batch)
		if err != nil {
			s.logger.Error("Batch embedding request failed",
				zap.String("provider", s.provider),
				zap.String("model", s.model),
				zap.Int("batch_offset", offset),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("embed batch at offset %d: %w", offset, err)
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embed batch at offset %d: %w: got %d vectors for %d texts",
				offset, domain.ErrEmbeddingProviderError, len(res.Embeddings), len(batch))
		}

		vectors = append(vectors, res.Embeddings...)
		totalTokens += res.TotalTokens
	}

	domain.TurnUsageFrom(ctx).RecordEmbedding(totalTokens)

	s.logger.Debug("Document embedding completed",
		zap.String("provider", s.provider),
		zap.String("model", s.model),
		zap.Int("chunks", len(chunks)),
		zap.Int("batch_size", size),
		zap.Int("total_tokens", totalTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return vectors, nil
}

// EmbedQuery embeds a question in query mode.
// Empty text and provider failures both yield an empty vector; failures are logged and counted.
func (s *Service) EmbedQuery(ctx context.Context, req domain.QueryRequest) []float32 {
	if req.Text == "" {
		return []float32{}
	}

	if err := s.wait(ctx); err != nil {
		s.queryFailed(req, err)
		return []float32{}
	}

	res, err := s.inner.EmbedQuery(ctx, req)
	if err != nil {
		s.queryFailed(req, err)
		return []float32{}
	}

	domain.TurnUsageFrom(ctx).RecordEmbedding(res.TotalTokens)
	return res.Embedding
}

// ProbeDimension embeds a probe text in document mode and compares its length to expected.
func (s *Service) ProbeDimension(ctx context.Context, collectionName string, expected int) error {
	if err := s.wait(ctx); err != nil {
		return fmt.Errorf("probe dimension: %w", err)
	}
	res, err := s.inner.EmbedDocuments(ctx, []string{probeText})
	if err != nil {
		return fmt.Errorf("probe dimension: %w", err)
	}
	if len(res.Embeddings) != 1 {
		return fmt.Errorf("probe dimension: %w: got %d vectors", domain.ErrEmbeddingProviderError, len(res.Embeddings))
	}
	if got := len(res.Embeddings[0]); got != expected {
		return domain.NewDimensionMismatch(collectionName, expected, got)
	}
	return nil
}

// HealthCheck delegates to the inner embedder when supported.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (s *Service) queryFailed(req domain.QueryRequest, err error) {
	metrics.EmbeddingQueryFailuresTotal.Inc()
	s.logger.Warn("Query embedding failed, continuing with empty vector",
		zap.String("provider", s.provider),
		zap.String("model", s.model),
		zap.Int("query_len", len(req.Text)),
		zap.Error(err),
	)
}
