package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/document"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
)

// Config holds splitting and batching parameters.
type Config struct {
	Collection string
	MaxChars   int
	Overlap    int
	BatchSize  int
}

// Service runs parse, split, embed and store for one source.
// It is not transactional: chunks stored before a failure remain searchable,
// and ingesting the same source twice stores every chunk twice.
type Service struct {
	parser   Parser
	embedder Embedder
	store    Store
	cfg      Config
	logger   *zap.Logger
}

// New creates an ingestion Service.
func New(parser Parser, embedder Embedder, store Store, cfg Config, logger *zap.Logger) *Service {
	return &Service{parser: parser, embedder: embedder, store: store, cfg: cfg, logger: logger}
}

// run tracks state transitions for one ingestion.
type run struct {
	svc    *Service
	report Report
	start  time.Time
	stage  time.Time
}

// Ingest parses path and ingests the resulting document.
func (s *Service) Ingest(ctx context.Context, path string, metadata map[string]string) (Report, error) {
	r := s.begin(path)
	r.enter(StateParsing)

	doc, err := s.parser.ParseFile(ctx, path, metadata)
	if err != nil {
		return r.fail(err)
	}
	if src := doc.Source(); src != "" {
		r.report.Source = src
	}
	r.leave("ok")

	return s.ingest(ctx, r, doc)
}

// IngestDocument ingests an already parsed document, starting at splitting.
func (s *Service) IngestDocument(ctx context.Context, doc document.Document) (Report, error) {
	return s.ingest(ctx, s.begin(doc.Source()), doc)
}

func (s *Service) begin(source string) *run {
	now := time.Now()
	return &run{svc: s, report: Report{Source: source}, start: now, stage: now}
}

func (s *Service) ingest(ctx context.Context, r *run, doc document.Document) (Report, error) {
	r.enter(StateSplitting)
	chunks, err := chunk.Split(doc, s.cfg.MaxChars, s.cfg.Overlap)
	if err != nil {
		return r.fail(err)
	}
	r.report.Chunks = len(chunks)
	r.leave("ok")

	r.enter(StateEmbedding)
	vectors, err := s.embedder.EmbedDocuments(ctx, chunks, s.cfg.BatchSize)
	if err != nil {
		return r.fail(err)
	}
	if len(vectors) != len(chunks) {
		return r.fail(fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	r.leave("ok")

	r.enter(StateStoring)
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}
		if _, err := s.store.Insert(ctx, s.cfg.Collection, c, vectors[i]); err != nil {
			return r.fail(fmt.Errorf("chunk %d: %w", c.Index(), err))
		}
		r.report.Inserted++
	}
	metrics.IngestChunksTotal.Add(float64(r.report.Inserted))
	r.leave("ok")

	r.enter(StateDone)
	r.report.Duration = time.Since(r.start)
	s.logger.Info("Ingestion completed",
		zap.String("source", r.report.Source),
		zap.String("collection", s.cfg.Collection),
		zap.Int("chunks", r.report.Chunks),
		zap.Int("inserted", r.report.Inserted),
		zap.Duration("duration", r.report.Duration),
	)
	return r.report, nil
}

func (r *run) enter(state State) {
	r.report.State = state
	r.report.Transitions = append(r.report.Transitions, state)
	r.stage = time.Now()
	r.svc.logger.Debug("Ingestion stage started",
		zap.String("source", r.report.Source),
		zap.String("stage", string(state)),
	)
}

func (r *run) leave(status string) {
	metrics.IngestStagesTotal.WithLabelValues(string(r.report.State), status).Inc()
	r.svc.logger.Debug("Ingestion stage finished",
		zap.String("source", r.report.Source),
		zap.String("stage", string(r.report.State)),
		zap.String("status", status),
		zap.Duration("duration", time.Since(r.stage)),
	)
}

func (r *run) fail(err error) (Report, error) {
	stage := r.report.State
	r.leave("error")
	if r.report.Inserted > 0 {
		metrics.IngestChunksTotal.Add(float64(r.report.Inserted))
	}

	r.report.State = StateFailed
	r.report.Transitions = append(r.report.Transitions, StateFailed)
	r.report.Duration = time.Since(r.start)

	ierr := &Error{Stage: stage, Source: r.report.Source, Err: err}
	fields := []zap.Field{
		zap.String("source", r.report.Source),
		zap.String("stage", string(stage)),
		zap.Int("inserted", r.report.Inserted),
		zap.Error(err),
	}
	if errors.Is(err, context.Canceled) {
		r.svc.logger.Warn("Ingestion canceled", fields...)
	} else {
		r.svc.logger.Error("Ingestion failed", fields...)
	}
	return r.report, ierr
}
