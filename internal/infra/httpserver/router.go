package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/requirement-analyzer/internal/application/analysis"
	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/ai/prompt"
	"github.com/bryanwahyu/requirement-analyzer/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Analyzer is what the HTTP surface needs from the analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, specification string) (analysis.Result, error)
	ListProcesses(ctx context.Context, page, pageSize int) ([]*requirements.Process, error)
	GetProcess(ctx context.Context, id int64) (*requirements.Process, error)
	ListFailures(ctx context.Context, runID string, limit int) ([]*failures.Failure, error)
}

type Options struct {
	Logger         *slog.Logger
	APIKeys        map[string]string
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	HealthCheckers map[string]middleware.HealthChecker
	AllowedOrigins []string
	MaxSpecChars   int
}

type Router struct {
	svc          Analyzer
	logger       *slog.Logger
	maxSpecChars int
}

func NewRouter(svc Analyzer, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	r := &Router{svc: svc, logger: opts.Logger, maxSpecChars: opts.MaxSpecChars}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(middleware.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
		ExposedHeaders: []string{"X-Run-ID", "Retry-After"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimit(opts.RateLimiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze-requirements", r.wrap(r.handleAnalyze))
		rt.Get("/processes", r.wrap(r.handleListProcesses))
		rt.Get("/processes/{id}", r.wrap(r.handleGetProcess))
		rt.Get("/failures", r.wrap(r.handleListFailures))
	})
	// edge-function path the browser client calls
	mux.Post("/functions/v1/analyze-requirements", r.wrap(r.handleAnalyze))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client input errors
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

type envelope struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	Model        string `json:"model,omitempty"`
	RunID        string `json:"run_id,omitempty"`
	Error        string `json:"error,omitempty"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
	Details      string `json:"details,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var (
			br  badRequest
			sat *domai.SaturatedError
		)
		switch {
		case errors.As(err, &br):
			writeJSON(w, http.StatusBadRequest, envelope{Error: br.msg})
		case errors.Is(err, analysis.ErrEmptySpecification):
			writeJSON(w, http.StatusBadRequest, envelope{Error: analysis.ErrEmptySpecification.Error()})
		case errors.Is(err, domai.ErrInsufficientCredits):
			writeJSON(w, http.StatusPaymentRequired, envelope{Error: "insufficient credits on the model provider"})
		case errors.As(err, &sat):
			w.Header().Set("Retry-After", strconv.Itoa(int(sat.RetryAfter.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, envelope{
				Error:        "all models are saturated, try again later",
				RetryAfterMS: sat.RetryAfter.Milliseconds(),
			})
		case errors.Is(err, prompt.ErrInvalidOutput):
			writeJSON(w, http.StatusUnprocessableEntity, envelope{
				Error:   "the model returned an unusable response",
				Details: err.Error(),
			})
		case errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusNotFound, envelope{Error: "not found"})
		default:
			r.logger.Error("http.handler", "path", req.URL.Path, "request_id", chimw.GetReqID(req.Context()), "error", err)
			writeJSON(w, http.StatusInternalServerError, envelope{Error: "internal error", Details: err.Error()})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	v.Success = status < http.StatusBadRequest
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type analyzeRequest struct {
	Specification string `json:"specification" validate:"notblank"`
}

// POST /v1/analyze-requirements
// Body: {"specification": "<free text>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return badRequest{msg: "invalid JSON body"}
	}
	body.Specification = middleware.SanitizeString(body.Specification)
	if err := middleware.Validate(body); err != nil {
		return badRequest{msg: err.Error()}
	}
	if r.maxSpecChars > 0 && len([]rune(body.Specification)) > r.maxSpecChars {
		return badRequest{msg: "specification exceeds " + strconv.Itoa(r.maxSpecChars) + " characters"}
	}

	// once started the analysis runs to completion even if the client goes away
	ctx := context.WithoutCancel(req.Context())
	res, err := r.svc.Analyze(ctx, body.Specification)
	if res.RunID != "" {
		w.Header().Set("X-Run-ID", res.RunID)
	}
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, envelope{Data: res.Processes, Model: res.Model, RunID: res.RunID})
	return nil
}

// GET /v1/processes?page=&page_size=
func (r *Router) handleListProcesses(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.ListProcesses(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, envelope{Data: list})
	return nil
}

// GET /v1/processes/{id}
func (r *Router) handleGetProcess(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest{msg: "invalid process id"}
	}

	p, err := r.svc.GetProcess(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, envelope{Data: p})
	return nil
}

// GET /v1/failures?limit=&run_id=
func (r *Router) handleListFailures(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	runID := middleware.SanitizeString(req.URL.Query().Get("run_id"))

	list, err := r.svc.ListFailures(req.Context(), runID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, envelope{Data: list})
	return nil
}
