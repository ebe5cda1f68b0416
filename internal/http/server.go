package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"expenseview/internal/cache"
	"expenseview/internal/core"
	"expenseview/internal/export"
	"expenseview/internal/log"
	"expenseview/internal/middleware/ratelimit"
	"expenseview/internal/middleware/security"
	"expenseview/internal/middleware/trace"
	"expenseview/internal/session"
	"expenseview/internal/source"
	"expenseview/internal/view"
)

// remoteTimeout bounds every handler that talks to the expense backend.
const remoteTimeout = 7 * time.Second

// Authenticator exchanges credentials for a person and token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (core.Person, error)
}

// CacheStats is the read side of a cache reported on /metrics.
type CacheStats interface {
	Stats() cache.Stats
}

// Deps are the collaborators the server routes to. Auth and Categories may
// be nil: login then answers 501 and readiness is always reported.
// CategoryCache is optional.
type Deps struct {
	List       *view.ExpenseList
	Dashboard  *view.Dashboard
	Session    *session.Store
	Auth       Authenticator
	Exporter   *export.Service
	Categories source.CategoryLister
	Status     *view.Status
	Logger     *log.Logger
	RateLimit  ratelimit.Config

	CategoryCache CacheStats
}

// Server is the JSON API in front of the presentation engine.
type Server struct {
	http.Server

	list       *view.ExpenseList
	dashboard  *view.Dashboard
	session    *session.Store
	auth       Authenticator
	exporter   *export.Service
	categories source.CategoryLister
	status     *view.Status
	logger     *log.Logger
	cacheStats CacheStats
	started    time.Time

	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	status := deps.Status
	if status == nil && deps.List != nil {
		status = deps.List.Status()
	}

	detector := security.NewDetector(logger)
	s := &Server{
		list:        deps.List,
		dashboard:   deps.Dashboard,
		session:     deps.Session,
		auth:        deps.Auth,
		exporter:    exporter,
		categories:  deps.Categories,
		status:      status,
		logger:      logger.WithComponent(log.ComponentHTTP),
		cacheStats:  deps.CategoryCache,
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit, logger),
		detector:    detector,
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleSaveSession)
	mux.HandleFunc("POST /api/session/login", s.handleLogin)
	mux.HandleFunc("DELETE /api/session", s.handleLogoff)

	mux.HandleFunc("POST /api/expenses/load", s.handleLoadExpenses)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses/sort", s.handleSortExpenses)
	mux.HandleFunc("POST /api/expenses/page", s.handleChangePage)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/export", s.handleExportExpenses)

	mux.HandleFunc("POST /api/chart/refresh", s.handleRefreshChart)
	mux.HandleFunc("GET /api/chart", s.handleGetChart)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// middleware wraps the mux. Order, outermost first: security headers,
// probe detection, tracing, then rate limiting of mutating requests.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(next)

	h := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	}))
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return h
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.status != nil {
			s.status.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// writeViewError maps errors coming out of the view layer to responses.
// fallback is used when the error carries no better message.
func (s *Server) writeViewError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var um interface{ UserMessage() string }
	switch {
	case errors.Is(err, session.ErrNoIdentity):
		UnauthorizedError(session.NoIdentityMessage).Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(http.StatusGatewayTimeout, "The expense service did not answer in time.").Write(w)
	case errors.Is(err, context.Canceled):
		// client went away
		w.WriteHeader(499)
	case errors.Is(err, source.ErrNotFound):
		NotFoundError("Expense not found.").Write(w)
	case errors.As(err, &um) && um.UserMessage() != "":
		BadGatewayError(um.UserMessage()).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		tracedError(r, http.StatusBadGateway, fallback).Write(w)
	}
}

// tracedError is an error response that also carries the request ID, so an
// unexpected failure can be matched to its log lines.
func tracedError(r *http.Request, status int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(status).
		Body(errorBody{Error: message, RequestID: trace.GetRequestID(r.Context())})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady checks that the backend answers a category listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.categories != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := s.categories.Categories(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "backend unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
