package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/search/result"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/pipeline/dag"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/prompt"
)

// Config holds per-question retrieval settings.
type Config struct {
	Collection  string
	K           int
	NodeTimeout time.Duration
	// UserTemplate and RetrievalTemplate default to the built-in prompts.
	UserTemplate      *prompt.Template
	RetrievalTemplate *prompt.Template
}

// Answer is the outcome of one question.
type Answer struct {
	Text    string
	Context string
	Chunks  []result.Result
	// NoMatches is set when retrieval found nothing and the generator was skipped.
	NoMatches bool
	Usage     domain.TurnUsage
}

// Service answers questions by running the embedder, retriever, prompt and generator graph.
type Service struct {
	plan   *dag.Plan
	cfg    Config
	logger *zap.Logger
}

// BuildGraph wires the four question stages. Node timeouts apply to every stage when d > 0.
func BuildGraph(e QueryEmbedder, r Retriever, g domain.Generator, user, retrieval *prompt.Template, d time.Duration) *dag.Graph {
	return dag.New().
		AddNode(NodeEmbedder, dag.WithTimeout(embedderStage(e), d)).
		AddNode(NodeRetriever, dag.WithTimeout(retrieverStage(r), d)).
		AddNode(NodePrompt, promptStage(user, retrieval)).
		AddNode(NodeGenerator, dag.WithTimeout(generatorStage(g), d)).
		Connect(NodeEmbedder, NodeRetriever, KeyQueryVector).
		Connect(NodeRetriever, NodePrompt, prompt.BindChunks).
		ConnectKey(NodePrompt, KeyPrompt, NodeGenerator, KeyPrompt)
}

// New compiles the question graph once.
func New(e QueryEmbedder, r Retriever, g domain.Generator, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.UserTemplate == nil {
		cfg.UserTemplate = prompt.DefaultUser()
	}
	if cfg.RetrievalTemplate == nil {
		cfg.RetrievalTemplate = prompt.DefaultRetrieval()
	}

	plan, err := BuildGraph(e, r, g, cfg.UserTemplate, cfg.RetrievalTemplate, cfg.NodeTimeout).
		Compile(
			dag.WithLogger(logger),
			dag.WithObserver(func(node, status string, d time.Duration) {
				metrics.PipelineNodeDuration.WithLabelValues(node, status).Observe(d.Seconds())
			}),
		)
	if err != nil {
		return nil, fmt.Errorf("compile question graph: %w", err)
	}
	return &Service{plan: plan, cfg: cfg, logger: logger}, nil
}

// Ask answers question using the configured k.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	return s.AskK(ctx, question, s.cfg.K)
}

// AskK answers question retrieving up to k chunks.
func (s *Service) AskK(ctx context.Context, question string, k int) (Answer, error) {
	ctx, usage := domain.WithTurnUsage(ctx)
	start := time.Now()

	res, err := s.plan.Run(ctx, map[string]dag.Inputs{
		NodeEmbedder:  {"text": question},
		NodePrompt:    {prompt.BindUserPrompt: question},
		NodeRetriever: {KeyCollectionName: s.cfg.Collection, KeyK: k},
	})
	ans := answerFrom(res, *usage)
	if err != nil {
		// Outputs of nodes that finished before the failure stay on the answer.
		return ans, fmt.Errorf("answer question: %w", err)
	}

	s.logger.Info("Question answered",
		zap.Int("chunks", len(ans.Chunks)),
		zap.Bool("no_matches", ans.NoMatches),
		zap.Int("embedding_tokens", usage.EmbeddingTokens),
		zap.Int("generation_tokens", usage.GenerationTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return ans, nil
}

func answerFrom(res dag.Result, usage domain.TurnUsage) Answer {
	ans := Answer{Usage: usage}
	ans.Chunks, _ = res.Outputs[NodeRetriever].([]result.Result)
	if res.StoppedAt == NodeRetriever {
		ans.NoMatches = true
	}
	if out, ok := res.Outputs[NodePrompt].(map[string]any); ok {
		ans.Context, _ = out[KeyContext].(string)
	}
	ans.Text, _ = res.Outputs[NodeGenerator].(string)
	return ans
}
