// Package web serves the local now-playing page. The page is the browser side
// of the session: it receives the OAuth redirect, reports visibility and
// renders the latest snapshot.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/varunkrishnan1/SpotifyWeb-Connect/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Session is the controller surface used by the handlers.
type Session interface {
	State() session.State
	Snapshot() session.Snapshot
	LastError() *session.Error
	LoginURL(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) error
	SetVisible(ctx context.Context, visible bool) error
	Logout(ctx context.Context) error
	Retry(ctx context.Context) error
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	RefreshEvery time.Duration // How often the page reloads /api/now
}

// Server is the local HTTP server.
type Server struct {
	cfg       ServerConfig
	router    chi.Router
	server    *http.Server
	templates *template.Template
	session   Session
	location  *Location
	logger    zerolog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, sess Session, loc *Location, logger zerolog.Logger) (*Server, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = time.Second
	}

	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		templates: templates,
		session:   sess,
		location:  loc,
		logger:    logger.With().Str("component", "web").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.NoCache)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handlePage)
	s.router.Get("/login", s.handleLogin)
	s.router.Get("/callback", s.handleCallbackPage)

	s.router.Route("/api", func(r chi.Router) {
		// Commands must come from the page itself. A cross-site form or
		// text/plain POST would otherwise need no preflight.
		r.Use(http.NewCrossOriginProtection().Handler)
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/now", s.handleNow)
		r.Post("/callback", s.handleCallback)
		r.Post("/visibility", s.handleVisibility)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/retry", s.handleRetry)
		r.Post("/logout", s.handleLogout)
	})
}

// requestLogger logs each request at debug level with zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	})
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.logger.Info().Str("addr", "http://"+ln.Addr().String()).Msg("Serving now-playing page")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info().Msg("Web server stopped")
	return nil
}
