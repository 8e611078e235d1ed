package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/logger"
	"github.com/kailas-cloud/bookrec/internal/metrics"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
	usageuc "github.com/kailas-cloud/bookrec/internal/usecase/usage"
)

// ErrorCode is a stable machine-readable error code in JSON error bodies.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeQueryRejected      ErrorCode = "query_rejected"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeRateLimited        ErrorCode = "rate_limited"
	CodeCatalogUnavailable ErrorCode = "catalog_unavailable"
	CodeRequestCanceled    ErrorCode = "request_canceled"
	CodeInternalError      ErrorCode = "internal_error"
)

const (
	maxBodyBytes     = 16 << 10
	maxFeaturedLimit = 100
	// statusClientClosedRequest is the nginx convention for a client that went away.
	statusClientClosedRequest = 499
)

// Recommender is the recommendation pipeline as seen by the HTTP layer.
type Recommender interface {
	Recommend(ctx context.Context, req recommenduc.Request) (recommenduc.Result, error)
	Featured(ctx context.Context, n int) ([]book.Book, error)
	Options(ctx context.Context) recommenduc.Options
}

// HealthReporter produces the aggregated health report.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports embedding token usage for a period.
type UsageReporter interface {
	Report(ctx context.Context, period usageuc.Period) usageuc.Report
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	APIKeys            []string
	RequestsPerMinute  int // per client IP on POST /recommend, 0 = unlimited
	DisableHTTPMetrics bool
}

// errorHandler tries to handle an error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the bookrec HTTP API.
type Server struct {
	recommender   Recommender
	health        HealthReporter
	usage         UsageReporter
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(rec Recommender, health HealthReporter, logger *zap.Logger) *Server {
	s := &Server{
		recommender: rec,
		health:      health,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(context.Canceled, statusClientClosedRequest, CodeRequestCanceled),
		sentinelHandler(context.DeadlineExceeded, http.StatusServiceUnavailable, CodeRequestCanceled),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, CodeCatalogUnavailable),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
	}
	return s
}

// WithUsage enables GET /usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// Routes builds the chi router with the full middleware stack.
func (s *Server) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(APIKeyAuth(cfg.APIKeys))
	if !cfg.DisableHTTPMetrics {
		r.Use(metrics.Middleware())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/books/featured", s.FeaturedBooks)
	r.Get("/recommend/options", s.RecommendOptions)
	if s.usage != nil {
		r.Get("/usage", s.GetUsage)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.Limit(cfg.RequestsPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, CodeRateLimited, domain.ErrRateLimited.Error())
				}),
			))
		}
		r.Post("/recommend", s.Recommend)
	})

	return r
}

// recommendRequest is the POST /recommend body.
type recommendRequest struct {
	Query    string `json:"query"`
	Category string `json:"category" validate:"max=200"`
	Tone     string `json:"tone" validate:"max=50"`
	TopK     int    `json:"top_k" validate:"min=0,max=50"`
}

type recommendResponse struct {
	SearchPerformed bool          `json:"search_performed"`
	Results         []displayBook `json:"results"`
	SortKey         string        `json:"sort_key"`
	Degraded        bool          `json:"degraded,omitempty"`
}

type rejectionResponse struct {
	Code    ErrorCode `json:"code"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
}

type optionsResponse struct {
	Categories []string `json:"categories"`
	Tones      []string `json:"tones"`
}

type featuredResponse struct {
	Results []displayBook `json:"results"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Books  int               `json:"books"`
}

type usageResponse struct {
	Period      string `json:"period"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   int64  `json:"period_end"`
	TokensUsed  int64  `json:"tokens_used"`
	Limit       int64  `json:"limit"`
	Remaining   int64  `json:"remaining"`
	Exhausted   bool   `json:"exhausted"`
}

type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, validationMessage(err))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.recommender.Recommend(ctx, recommenduc.Request{
		Query:    req.Query,
		Category: req.Category,
		Tone:     req.Tone,
		TopK:     req.TopK,
	})
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}

	if res.Rejection != nil {
		writeJSON(w, http.StatusUnprocessableEntity, rejectionResponse{
			Code:    CodeQueryRejected,
			Reason:  string(res.Rejection.Reason),
			Message: res.Rejection.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, recommendResponse{
		SearchPerformed: res.SearchPerformed,
		Results:         presentBooks(res.Books, recommendLayout),
		SortKey:         string(res.SortKey),
		Degraded:        res.Retrieval.Outcome == recommenduc.OutcomeDegraded,
	})
}

// FeaturedBooks handles GET /books/featured.
func (s *Server) FeaturedBooks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxFeaturedLimit {
			writeError(w, http.StatusBadRequest, CodeBadRequest,
				"limit must be an integer between 0 and "+strconv.Itoa(maxFeaturedLimit))
			return
		}
		limit = n
	}

	books, err := s.recommender.Featured(r.Context(), limit)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, featuredResponse{Results: presentBooks(books, featuredLayout)})
}

// RecommendOptions handles GET /recommend/options.
func (s *Server) RecommendOptions(w http.ResponseWriter, r *http.Request) {
	opts := s.recommender.Options(r.Context())
	writeJSON(w, http.StatusOK, optionsResponse{Categories: opts.Categories, Tones: opts.Tones})
}

// GetUsage handles GET /usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "period must be day or month")
		return
	}

	rep := s.usage.Report(r.Context(), period)
	writeJSON(w, http.StatusOK, usageResponse{
		Period:      string(rep.Period),
		PeriodStart: rep.Start.UnixMilli(),
		PeriodEnd:   rep.End.UnixMilli(),
		TokensUsed:  rep.TokensUsed,
		Limit:       rep.Limit,
		Remaining:   rep.Remaining,
		Exhausted:   rep.Exhausted,
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
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks, Books: report.Books})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Embedded() {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(usage.Tokens(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// validationMessage names the first failing field without echoing its value.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "field " + fe.Field() + " failed " + fe.Tag() + "=" + fe.Param()
	}
	return "invalid request"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
