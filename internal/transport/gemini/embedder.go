package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
)

// MaxBatchSize is the provider ceiling for one batchEmbedContents call.
const MaxBatchSize = 100

const providerName = "gemini"

// Config holds the Gemini embedding settings.
type Config struct {
	APIKey string
	// Endpoint overrides the API root, e.g. "https://generativelanguage.googleapis.com/".
	Endpoint   string
	Model      string
	Dimensions int
	// Timeout bounds every provider call; zero leaves calls bounded by the caller context only.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Embedder implements domain.Embedder with native Gemini task types.
type Embedder struct {
	models     *genai.Models
	model      string
	dimensions *int32
	logger     *zap.Logger
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates a Gemini API embedder authenticated with an API key.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	httpOpts := genai.HTTPOptions{BaseURL: cfg.Endpoint}
	if cfg.Timeout > 0 {
		httpOpts.Timeout = genai.Ptr(cfg.Timeout)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var dims *int32
	if cfg.Dimensions > 0 {
		dims = genai.Ptr(int32(cfg.Dimensions))
	}

	return &Embedder{
		models:     client.Models,
		model:      cfg.Model,
		dimensions: dims,
		logger:     logger,
	}, nil
}

// EmbedDocuments embeds all texts in one call with RETRIEVAL_DOCUMENT.
// Callers keep len(texts) <= MaxBatchSize.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	if len(texts) > MaxBatchSize {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch of %d exceeds provider limit %d: %w",
			len(texts), MaxBatchSize, domain.ErrInvalidArgument)
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	out, err := e.embed(ctx, "document", contents, domain.TaskRetrievalDocument)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// EmbedQuery embeds one question with RETRIEVAL_QUERY.
func (e *Embedder) EmbedQuery(ctx context.Context, req domain.QueryRequest) (domain.EmbeddingResult, error) {
	out, err := e.embed(ctx, "query", genai.Text(req.Text), domain.TaskRetrievalQuery)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: out[0]}, nil
}

// HealthCheck fetches the model metadata.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.models.Get(ctx, e.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", e.model, parseAPIError(err))
	}
	return nil
}

// embed returns exactly one non-empty vector per content, in order.
func (e *Embedder) embed(ctx context.Context, mode string, contents []*genai.Content, task domain.TaskType) ([][]float32, error) {
	start := time.Now()
	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             string(task),
		OutputDimensionality: e.dimensions,
	})
	e.observe(mode, start, err)
	if err != nil {
		return nil, parseAPIError(err)
	}

	if len(resp.Embeddings) != len(contents) {
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "count_mismatch").Inc()
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w",
			len(contents), len(resp.Embeddings), domain.ErrEmbeddingProviderError)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "empty_response").Inc()
			return nil, fmt.Errorf("empty embedding at %d: %w", i, domain.ErrEmbeddingProviderError)
		}
		out[i] = emb.Values
	}
	return out, nil
}

func (e *Embedder) observe(mode string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		e.logger.Debug("Gemini embedding call failed",
			zap.String("mode", mode), zap.Duration("duration", time.Since(start)), zap.Error(err))
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, mode, status).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model, mode).Observe(time.Since(start).Seconds())
}

// parseAPIError maps genai errors to domain sentinels.
func parseAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("gemini API error %d: %s: %w: %w",
				apiErr.Code, apiErr.Message, domain.ErrRateLimited, domain.ErrEmbeddingProviderError)
		}
		return fmt.Errorf("gemini API error %d: %s: %w", apiErr.Code, apiErr.Message, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("gemini request failed: %w: %w", err, domain.ErrEmbeddingProviderError)
}
