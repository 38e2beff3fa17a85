package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	logpkg "github.com/aronetommaso/Fanta-Calcio-Agent/internal/logger"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/pipeline/dag"
	healthuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/health"
	queryuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/query"
)

const (
	maxQuestionLen = 4000
	maxK           = 100
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "collection_not_found"
	CodeRateLimited      = "rate_limited"
	CodeProviderError    = "provider_error"
	CodeTimeout          = "timeout"
	CodeInternalError    = "internal_error"
)

// Asker answers questions.
type Asker interface {
	AskK(ctx context.Context, question string, k int) (queryuc.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k,omitempty"`
}

// ChunkItem is one retrieved chunk in an AskResponse.
type ChunkItem struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// AskResponse is the body returned by POST /v1/ask.
type AskResponse struct {
	Answer    string      `json:"answer"`
	NoMatches bool        `json:"no_matches"`
	Chunks    []ChunkItem `json:"chunks"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the question API.
type Server struct {
	asker         Asker
	health        HealthChecker
	defaultK      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(asker Asker, health HealthChecker, defaultK int, logger *zap.Logger) *Server {
	s := &Server{
		asker:    asker,
		health:   health,
		defaultK: defaultK,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
	}
	return s
}

// Router builds the chi router with recovery, request IDs, wide-event logging and metrics.
func (s *Server) Router() http.Handler {
	r := gochi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/v1/ask", s.Ask)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return
	}
	if len(req.Question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"question must be at most "+strconv.Itoa(maxQuestionLen)+" bytes")
		return
	}

	k := s.defaultK
	if req.K != nil {
		if *req.K <= 0 || *req.K > maxK {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"k must be between 1 and "+strconv.Itoa(maxK))
			return
		}
		k = *req.K
	}

	ans, err := s.asker.AskK(r.Context(), req.Question, k)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	items := make([]ChunkItem, len(ans.Chunks))
	for i, c := range ans.Chunks {
		items[i] = ChunkItem{Text: c.Text(), Score: c.Score(), Index: c.Chunk().Index()}
	}

	setUsageHeaders(w, ans.Usage)
	writeJSON(w, http.StatusOK, AskResponse{
		Answer:    ans.Text,
		NoMatches: ans.NoMatches,
		Chunks:    items,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func setUsageHeaders(w http.ResponseWriter, u domain.TurnUsage) {
	if u.EmbeddingCalls > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(u.EmbeddingTokens))
	}
	if u.GenerationTokens > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(u.GenerationTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel text only, never the wrapped details.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)

	var nodeErr *dag.NodeError
	if errors.As(err, &nodeErr) {
		log = log.With(zap.String("node", nodeErr.Node))
	}
	log.Warn("domain error", zap.Error(err))

	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
