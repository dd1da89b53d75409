package core

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/sockerless/forkgate/api"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-Id"

// deploymentTimeLayout is RFC 3339 with millisecond precision.
const deploymentTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type contextKey int

const requestIDKey contextKey = iota

// RequestID returns the request ID stored by the server middleware.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Server is the forkgate HTTP server.
type Server struct {
	addr        string
	mux         *http.ServeMux
	pipeline    *Pipeline
	remediation Remediation
	metrics     *Metrics
	limiter     *rate.Limiter
	static      http.Handler
	logger      zerolog.Logger
}

// NewServer registers the routes. Static files are served from
// cfg.StaticDir when it exists.
func NewServer(cfg Config, pipeline *Pipeline, metrics *Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		addr:     cfg.ListenAddr,
		pipeline: pipeline,
		remediation: Remediation{
			Upstream: cfg.GitHub.Upstream,
			Session:  SessionFormat{Marker: cfg.Session.Marker},
		},
		metrics: metrics,
		logger:  logger,
	}
	if cfg.RateLimit.PerMinute > 0 {
		burst := max(cfg.RateLimit.Burst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.PerMinute/60), burst)
	}

	s.static = s.staticHandler(cfg.StaticDir)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /deploy", s.handleDeploy)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	s.mux.Handle("/", s.static)
}

func (s *Server) staticHandler(dir string) http.Handler {
	if dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return SPAHandler(os.DirFS(dir))
		}
		s.logger.Warn().Str("dir", dir).Msg("static directory not found, front-end disabled")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Not found", Code: "not_found"})
	})
}

// WithStatic serves the front-end from fsys instead of the static directory.
func (s *Server) WithStatic(fsys fs.FS) *Server {
	s.static = SPAHandler(fsys)
	s.registerRoutes()
	return s
}

// Handler returns the routes wrapped in tracing, request IDs and logging.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.requestIDMiddleware(s.loggingMiddleware(s.mux)), "forkgate")
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		host, port, _ := net.SplitHostPort(s.addr)
		if host == "" {
			host = "localhost"
		}
		s.logger.Info().Msgf("forkgate listening on http://%s:%s", host, port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Service: "forkgate"})
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.RateLimited.Inc()
		}
		WriteJSON(w, http.StatusTooManyRequests, api.ErrorResponse{
			Error: "Too many deployment requests",
			Code:  api.CodeRateLimited,
		})
		return
	}

	var req api.DeployRequest
	if err := ReadJSON(w, r, &req); err != nil {
		s.writeError(w, r, &api.InputFormatError{Field: "body", Message: err.Error()})
		return
	}

	out, err := s.pipeline.Deploy(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.DeployResponse{
		Success:        true,
		URL:            out.Instance.URL,
		AppName:        out.Instance.Name,
		DeploymentTime: out.CompletedAt.UTC().Format(deploymentTimeLayout),
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.remediation.Response(err)
	event := s.logger.Info()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	var coder api.Coder
	if errors.As(err, &coder) {
		event = event.Str("code", coder.Code())
	}
	event.Err(err).Int("status", status).Str("request_id", RequestID(r.Context())).Msg("deploy failed")
	WriteJSON(w, status, body)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("request_id", RequestID(r.Context())).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
