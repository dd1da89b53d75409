package simulator

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server serves both fakes from one listener: the hosting API under
// /github/ and the platform API under /heroku/.
type Server struct {
	config Config
	logger zerolog.Logger
	GitHub *GitHub
	Heroku *Heroku
	mux    *http.ServeMux
}

// NewServer creates a simulator server with empty fakes.
func NewServer(cfg Config, logger zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
		GitHub: NewGitHub(logger),
		Heroku: NewHeroku(cfg, logger),
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "forkgate-sim"})
	})
	s.mux.Handle("/github/", http.StripPrefix("/github", RequestIDMiddleware("X-GitHub-Request-Id")(s.GitHub)))
	s.mux.Handle("/heroku/", http.StripPrefix("/heroku", RequestIDMiddleware("Request-Id")(s.Heroku)))
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.logger)(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().
		Str("addr", s.config.ListenAddr).
		Str("github_api_url", "http://localhost"+s.config.ListenAddr+"/github").
		Str("heroku_api_url", "http://localhost"+s.config.ListenAddr+"/heroku").
		Msg("simulator listening")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
