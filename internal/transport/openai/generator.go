package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
)

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
	// StripReasoning removes <think>...</think> blocks emitted by reasoning models.
	StripReasoning bool
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Generator answers prompts through an OpenAI-compatible chat completions API (Groq by default).
type Generator struct {
	client *openai.Client
	cfg    GeneratorConfig
	logger *zap.Logger
}

var _ domain.Generator = (*Generator)(nil)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// NewGenerator creates a chat completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: openai.NewClientWithConfig(clientConfig(cfg.APIKey, cfg.BaseURL, cfg.Timeout)),
		cfg:    *cfg,
		logger: logger,
	}
}

// Generate sends the prompt as a single user message and returns the first choice.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: g.cfg.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: g.cfg.Temperature,
	}
	if g.cfg.MaxTokens > 0 {
		req.MaxTokens = g.cfg.MaxTokens
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.cfg.Model, "error").Inc()
		g.logger.Warn("Generation request failed",
			zap.String("model", g.cfg.Model), zap.Duration("duration", duration), zap.Error(err))
		return "", parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.cfg.Model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.cfg.Model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.cfg.Model).Observe(duration.Seconds())
	domain.TurnUsageFrom(ctx).RecordGeneration(resp.Usage.TotalTokens)

	g.logger.Debug("Generation completed",
		zap.String("model", g.cfg.Model),
		zap.Duration("duration", duration),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	answer := resp.Choices[0].Message.Content
	if g.cfg.StripReasoning {
		answer = strings.TrimSpace(thinkBlock.ReplaceAllString(answer, ""))
	}
	return answer, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
