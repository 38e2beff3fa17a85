package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/config"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/db/memory"
	dbRedis "github.com/aronetommaso/Fanta-Calcio-Agent/internal/db/redis"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/collection"
	logpkg "github.com/aronetommaso/Fanta-Calcio-Agent/internal/logger"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/parser"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/prompt"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/repository/embcache"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/repository/vectorstore"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/transport/gemini"
	openaiTransport "github.com/aronetommaso/Fanta-Calcio-Agent/internal/transport/openai"
	embeddinguc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/embedding"
	healthuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/health"
	ingestuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/ingest"
	queryuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/query"
)

const cacheReadyTimeout = 10 * time.Second

// app is the composition root shared by every command.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *vectorstore.Store
	embedding *embeddinguc.Service
	generator *openaiTransport.Generator
	ingest    *ingestuc.Service
	query     *queryuc.Service
	health    *healthuc.Service
	closers   []func()
}

// buildOptions tweak construction per command.
type buildOptions struct {
	// logFile sends logs to a file, used while the TUI owns the terminal.
	logFile string
}

func newApp(ctx context.Context, env string, cfg config.Config, opts buildOptions) (*app, error) {
	logOpts := logpkg.Options{Env: env, Level: cfg.Logging.Level}
	if opts.logFile != "" {
		logOpts.OutputPaths = []string{opts.logFile}
	}
	logger, err := logpkg.NewLogger(logOpts)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	provider, err := a.buildEmbedder(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var limiter *rate.Limiter
	if rps := cfg.Embedding.RequestsPerSecond; rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	a.embedding = embeddinguc.NewService(provider, embeddinguc.Config{
		Provider:     cfg.Embedding.Provider,
		Model:        cfg.Embedding.Model,
		BatchSize:    cfg.Embedding.BatchSize,
		MaxBatchSize: cfg.Embedding.MaxBatchSize,
		Limiter:      limiter,
	}, logger)

	temperature := float32(0)
	if cfg.Generation.Temperature != nil {
		temperature = float32(*cfg.Generation.Temperature)
	}
	a.generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:         cfg.Generation.APIKey,
		BaseURL:        cfg.Generation.BaseURL,
		Model:          cfg.Generation.Model,
		Temperature:    temperature,
		MaxTokens:      cfg.Generation.MaxTokens,
		SystemPrompt:   cfg.Generation.SystemPrompt,
		StripReasoning: cfg.Generation.StripReasoning,
		Timeout:        time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:         logger,
	})

	a.store = vectorstore.New()

	if err := parser.SetLicense(cfg.Ingest.UnidocLicenseKey); err != nil {
		a.Close()
		return nil, err
	}
	a.ingest = ingestuc.New(
		parser.NewRegistry(&parser.TextParser{}, &parser.PDFParser{Logger: logger}),
		a.embedding, a.store,
		ingestuc.Config{
			Collection: cfg.VectorStore.Collection,
			MaxChars:   cfg.Ingest.MaxChars,
			Overlap:    cfg.Ingest.Overlap,
			BatchSize:  cfg.Embedding.BatchSize,
		},
		logger,
	)

	userTmpl, err := prompt.LoadOrDefault(cfg.Prompt.UserTemplateFile, prompt.DefaultUser())
	if err != nil {
		a.Close()
		return nil, err
	}
	retrievalTmpl, err := prompt.LoadOrDefault(cfg.Prompt.RetrievalTemplateFile, prompt.DefaultRetrieval())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.query, err = queryuc.New(a.embedding, a.store, a.generator, queryuc.Config{
		Collection:        cfg.VectorStore.Collection,
		K:                 cfg.Retrieval.K,
		NodeTimeout:       time.Duration(cfg.Retrieval.NodeTimeoutSec) * time.Second,
		UserTemplate:      userTmpl,
		RetrievalTemplate: retrievalTmpl,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.health = healthuc.New(a.store, a.embedding, a.generator)
	return a, nil
}

// buildEmbedder assembles the decorator chain: provider -> query cache.
func (a *app) buildEmbedder(ctx context.Context) (domain.Embedder, error) {
	cfg := a.cfg.Embedding

	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gemini.NewEmbedder(ctx, &gemini.Config{
			APIKey:     cfg.APIKey,
			Endpoint:   cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			Logger:     a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini embedder: %w", err)
		}
		base = g
	case config.ProviderOpenAI:
		o := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			Logger:     a.logger,
		})
		base = domain.NewInstructionEmbedder(o, cfg.DocumentInstruction, cfg.QueryInstruction)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, cfg.Provider)
	}

	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	switch cfg.Cache.Driver {
	case config.CacheMemory:
		return embcache.New(base, memory.NewStore(), cfg.Model, ttl, metrics.EmbeddingCacheTotal, a.logger), nil
	case config.CacheRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Cache.Addrs, Password: cfg.Cache.Password})
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		if err := s.WaitForReady(ctx, cacheReadyTimeout); err != nil {
			return nil, fmt.Errorf("redis cache not ready: %w", err)
		}
		a.logger.Info("Connected to query embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
		return embcache.New(base, s, cfg.Model, ttl, metrics.EmbeddingCacheTotal, a.logger), nil
	default:
		return base, nil
	}
}

// prepare creates the collection, checks the embedder dimension and ingests the configured source.
func (a *app) prepare(ctx context.Context, source string) error {
	vs := a.cfg.VectorStore
	col, err := collection.New(vs.Collection, vs.Dimension, collection.Metric(vs.Metric))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	if !a.cfg.Ingest.SkipDimensionProbe {
		if err := a.embedding.ProbeDimension(ctx, vs.Collection, vs.Dimension); err != nil {
			return err
		}
	}

	if err := a.store.CreateCollection(ctx, col); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	if source == "" {
		source = a.cfg.Ingest.Source
	}
	a.logger.Info("Ingesting source",
		zap.String("source", source),
		zap.String("collection", vs.Collection),
		zap.Int("max_chars", a.cfg.Ingest.MaxChars),
		zap.Int("overlap", a.cfg.Ingest.Overlap),
	)
	if _, err := a.ingest.Ingest(ctx, source, a.cfg.Ingest.Metadata); err != nil {
		return err
	}
	return nil
}

// Close releases resources in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
