// Package server provides the HTTP API for job search, resume fit scoring,
// resume review and saved listings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/config"
	"github.com/jonathan/job-matcher/internal/db"
	"github.com/jonathan/job-matcher/internal/fit"
	"github.com/jonathan/job-matcher/internal/freshness"
	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/resume"
	"github.com/jonathan/job-matcher/internal/server/middleware"
	"github.com/jonathan/job-matcher/internal/server/ratelimit"
	"github.com/jonathan/job-matcher/internal/types"
)

const (
	shutdownTimeout = 30 * time.Second
	healthTimeout   = 2 * time.Second
)

// Searcher runs one realtime job search.
type Searcher interface {
	Search(ctx context.Context, q types.SearchQuery) (types.SearchPage, error)
}

// Reviewer produces resume feedback, optionally against a job description.
type Reviewer interface {
	Review(ctx context.Context, profile *types.ResumeProfile, jobDescription string) (*types.ReviewResult, error)
}

// MonitorStatus reports freshness monitor state for the health endpoint.
type MonitorStatus interface {
	Stats() freshness.Stats
}

// Deps are the components the API serves. Parser and Scorer default to
// fresh instances; Monitor is optional.
type Deps struct {
	Store    db.Store
	Search   Searcher
	Reviewer Reviewer
	Parser   *resume.Parser
	Scorer   *fit.Scorer
	Monitor  MonitorStatus
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	deps        Deps
	ingestion   config.IngestionConfig
	corsOrigin  string
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a new server instance
func New(deps Deps, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if deps.Store == nil || deps.Search == nil || deps.Reviewer == nil {
		return nil, errors.New("server requires a store, a searcher and a reviewer")
	}
	log = logger.Component(log, "server")
	if deps.Parser == nil {
		deps.Parser = resume.New(log)
	}
	if deps.Scorer == nil {
		deps.Scorer = fit.New(log)
	}

	s := &Server{
		deps:        deps,
		ingestion:   cfg.Ingestion,
		corsOrigin:  cfg.Server.CORSOrigin,
		rateLimiter: ratelimit.NewLimiter(ratelimit.FromSettings(cfg.RateLimit)),
		logger:      log,
		now:         time.Now,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /jobs/realtime", s.handleRealtimeSearch)
	mux.HandleFunc("GET /jobs/locations", s.handleSuggestLocations)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)

	mux.HandleFunc("POST /resume/parse", s.handleParseResume)
	mux.HandleFunc("POST /resume/fit", s.handleFit)
	mux.HandleFunc("POST /resume/fit/batch", s.handleBatchFit)
	mux.HandleFunc("POST /resume/review", s.handleReview)
	mux.HandleFunc("POST /resume/review-file", s.handleReviewFile)

	// Saved listings need a verifiable identity, so they exist only with a secret.
	if cfg.Auth.TokenSecret != "" {
		s.jwtService = NewJWTService(cfg.Auth)
		auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
		mux.Handle("GET /saved-jobs", auth(http.HandlerFunc(s.handleListSavedJobs)))
		mux.Handle("POST /saved-jobs/{id}", auth(http.HandlerFunc(s.handleSaveJob)))
		mux.Handle("DELETE /saved-jobs/{id}", auth(http.HandlerFunc(s.handleDeleteSavedJob)))
	} else {
		log.Warn("auth.token_secret not set, saved-job routes disabled")
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      middleware.RequestID(s.withLogging(s.withCORS(s.withRateLimit(mux)))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases background resources without serving.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+middleware.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", middleware.RequestIDHeader+", Retry-After")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// withLogging logs one line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String(logger.FieldRequestID, middleware.GetRequestID(r.Context())),
			zap.String("client", s.extractClientID(r)),
		}
		switch {
		case r.URL.Path == "/health":
			s.logger.Debug("request completed", fields...)
		case rec.status >= http.StatusInternalServerError:
			s.logger.Warn("request completed", fields...)
		default:
			s.logger.Info("request completed", fields...)
		}
	})
}

// handleHealth reports store reachability and monitor state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := map[string]any{"status": "ok", "store": "ok"}
	status := http.StatusOK
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		resp["status"] = "degraded"
		resp["store"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if s.deps.Monitor != nil {
		resp["monitor"] = s.deps.Monitor.Stats()
	} else {
		resp["monitor"] = nil
	}
	s.jsonResponse(w, status, resp)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes the error as JSON with the status HTTPStatus assigns it.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String(logger.FieldRequestID, middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	body := map[string]any{
		"error":      publicMessage(err, status),
		"request_id": middleware.GetRequestID(r.Context()),
	}
	var validation *types.ValidationError
	if errors.As(err, &validation) {
		body["field"] = validation.Field
	}
	var unavailable *types.SourceUnavailableError
	if errors.As(err, &unavailable) && unavailable.Kind.Retryable() {
		w.Header().Set("Retry-After", "30")
	}
	s.jsonResponse(w, status, body)
}

// extractClientID identifies the client by the IP in RemoteAddr.
// X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":      "rate_limit_exceeded",
		"message":    "Rate limit exceeded. Please try again later.",
		"limit":      info.Limit,
		"remaining":  info.Remaining,
		"request_id": middleware.GetRequestID(r.Context()),
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int((info.RetryAfter + time.Second - 1) / time.Second)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("client", clientID),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
		zap.Duration("retry_after", info.RetryAfter),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
