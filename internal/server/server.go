// Package server exposes a songrec.Service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hupe1980/songrec"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const internalErrorMessage = "Failed to recommend a song, internal server error"

// Options configures a Server.
type Options struct {
	MaxBodyBytes int64
	// RateLimit is the number of requests per RateWindow and client IP. 0 disables limiting.
	RateLimit  int
	RateWindow time.Duration
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    *songrec.Service
	logger *songrec.Logger
	opts   Options
	router chi.Router
}

// New creates a Server. A nil logger discards logs.
func New(svc *songrec.Service, logger *songrec.Logger, opts Options) *Server {
	if logger == nil {
		logger = songrec.NoopLogger()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	s := &Server{svc: svc, logger: logger, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/", s.hello)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Get("/catalog", s.catalog)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.opts.RateLimit, s.opts.RateWindow))
		}
		r.Post("/recommend", s.recommend)
	})
	return r
}

// requestID propagates or assigns a request id and attaches it to the
// context used by songrec loggers.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(songrec.ContextWithRequestID(r.Context(), id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithContext(r.Context()).DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

type recommendResponse struct {
	Status  string           `json:"status"`
	Version string           `json:"version,omitempty"`
	Results []songrec.Result `json:"results"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type catalogResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
	Entries    int       `json:"entries"`
	Duplicates int       `json:"duplicates"`
	Dimension  int       `json:"dimension"`
	Genres     []string  `json:"genres"`
}

func (s *Server) hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello, World!"))
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.svc.Ready() {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) catalog(w http.ResponseWriter, _ *http.Request) {
	c := s.svc.Loader().Loaded()
	if c == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	stats := c.Index.Stats()
	writeJSON(w, http.StatusOK, catalogResponse{
		Status:     "ok",
		Version:    c.Version,
		LoadedAt:   c.LoadedAt,
		Entries:    stats.Entries,
		Duplicates: stats.Duplicates,
		Dimension:  stats.Dimension,
		Genres:     c.Index.Genres(),
	})
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var req songrec.Request
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	results, err := s.svc.Recommend(r.Context(), &req)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.WithContext(r.Context()).ErrorContext(r.Context(), "recommend failed", "status", status, "error", err)
		}
		writeError(w, status, msg)
		return
	}

	resp := recommendResponse{Status: "ok", Results: results}
	if c := s.svc.Loader().Loaded(); c != nil {
		resp.Version = c.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a Recommend error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, songrec.ErrInvalidRequest), errors.Is(err, songrec.ErrInvalidK):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, songrec.ErrEmbedding):
		return http.StatusBadGateway, "embedding generator unavailable"
	case errors.Is(err, songrec.ErrMissingArtifact), errors.Is(err, songrec.ErrMalformedIndex):
		return http.StatusServiceUnavailable, "catalog unavailable"
	case errors.Is(err, songrec.ErrOverloaded):
		return http.StatusServiceUnavailable, "server overloaded, retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: msg})
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	srv.Handler = s.router

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.InfoContext(ctx, "http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
