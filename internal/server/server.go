// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// cmd/blogd opens the store, blob store and event publisher and passes them
// in as Deps. New builds services and handlers from them:
//
//	Deps.Store (repository.Store) → Auth/Post/BookmarkService → handlers
//
// The Server never opens or closes those resources itself; whoever created
// them closes them after Start returns.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/blobstore"
	"github.com/sakif/blogsite/internal/events"
	"github.com/sakif/blogsite/internal/handler"
	"github.com/sakif/blogsite/internal/middleware"
	"github.com/sakif/blogsite/internal/repository"
	"github.com/sakif/blogsite/internal/service"
)

const defaultShutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Addr          string // e.g. ":8080"
	MaxImageBytes int    // decoded image cap; 0 uses service.DefaultMaxImageBytes

	// ShutdownTimeout bounds how long in-flight requests get to finish.
	ShutdownTimeout time.Duration
}

// Deps are the long-lived resources the server uses but does not own.
type Deps struct {
	Store     repository.Store
	Blobs     blobstore.Store
	Publisher events.Publisher // nil disables events
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	GitHub    *auth.GitHubProvider // nil disables GitHub login
}

// Server represents the HTTP server and all its routes.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New creates a Server and registers every route.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("server: store is required")
	case deps.Blobs == nil:
		return nil, errors.New("server: blob store is required")
	case deps.Tokens == nil:
		return nil, errors.New("server: token service is required")
	case deps.Passwords == nil:
		return nil, errors.New("server: password service is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/register
//	POST   /api/auth/login
//	POST   /api/auth/refresh
//	POST   /api/auth/logout
//	GET    /api/auth/me                        [auth]
//	GET    /api/auth/github/login              (when configured)
//	GET    /api/auth/github/callback           (when configured)
//	GET    /api/blogs?limit=&offset=
//	GET    /api/blogs/{id}
//	POST   /api/blogs                          [auth]
//	PUT    /api/blogs                          [auth]
//	DELETE /api/blogs/{id}                     [auth]
//	PUT    /api/blogs/save/{postId}/{userId}
//	GET    /api/blogs/saved/{userId}
//	DELETE /api/blogs/saved/remove/{savedId}   [auth]
//	GET    /healthz
//	GET    /media/*                            (local blob store only)
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns unique ID to each request (logged by Logger)
//  2. RealIP: extracts real client IP from proxy headers
//  3. Logger: logs each request with timing info
//  4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	d := s.deps
	authService := service.NewAuthService(d.Store, d.Tokens, d.Passwords, s.logger)
	postService := service.NewPostService(d.Store, d.Store, d.Blobs, d.Publisher, s.config.MaxImageBytes, s.logger)
	bookmarkService := service.NewBookmarkService(d.Store, d.Store, d.Store, d.Publisher, s.logger)

	authHandler := handler.NewAuthHandler(authService, d.Tokens, d.GitHub, s.logger)
	postHandler := handler.NewPostHandler(postService, s.config.MaxImageBytes, s.logger)
	bookmarkHandler := handler.NewBookmarkHandler(bookmarkService, s.logger)
	healthHandler := handler.NewHealthHandler(d.Store, s.logger)

	requireAuth := auth.RequireAuth(d.Tokens)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	if local, ok := d.Blobs.(*blobstore.Local); ok {
		// Keys start with "media/", so the root is served as-is.
		s.router.Handle("/media/*", noDirListing(http.FileServer(http.Dir(local.Root()))))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)

			if d.GitHub != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Route("/blogs", func(r chi.Router) {
			// Public routes. OptionalAuth lets HandleSave see a logged-in caller.
			r.Group(func(r chi.Router) {
				r.Use(auth.OptionalAuth(d.Tokens))
				r.Get("/", postHandler.HandleList)
				r.Get("/{id}", postHandler.HandleGet)
				r.Put("/save/{postId}/{userId}", bookmarkHandler.HandleSave)
				r.Get("/saved/{userId}", bookmarkHandler.HandleListSaved)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postHandler.HandleCreate)
				r.Put("/", postHandler.HandleUpdate)
				r.Delete("/{id}", postHandler.HandleDelete)
				r.Delete("/saved/remove/{savedId}", bookmarkHandler.HandleRemove)
			})
		})
	})
}

// noDirListing turns directory requests into 404s.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (ShutdownTimeout, default 30s)
//  3. Return, so the caller can close the store, blob client and publisher
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener. Tests pass a ":0" listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.Bool("githubLogin", s.deps.GitHub != nil),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
