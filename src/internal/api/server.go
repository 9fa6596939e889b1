// Package api serves the catalog operations as a JSON HTTP API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/ratelimit"
)

// Catalog is the set of operations the API exposes. *booksearch.Service
// implements it.
type Catalog interface {
	Search(ctx context.Context, q cql.Query) (booksearch.Outcome, []booksearch.Attempt)
	FetchByID(ctx context.Context, id string) (book.Record, error)
	FetchByCategory(ctx context.Context, code string) ([]book.Record, error)
	NewArrivals(ctx context.Context, page int) (booksearch.Page, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// RequestTimeout bounds each request's context; zero disables it.
	RequestTimeout time.Duration
	// ClientRate is the per-IP request rate for /api/v1; zero disables it.
	ClientRate  float64
	ClientBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog Catalog
	opts    Options
	router  *chi.Mux
	logger  *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(catalog Catalog, opts Options, logger *slog.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		catalog: catalog,
		opts:    opts,
		router:  chi.NewRouter(),
		logger:  logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.opts.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.opts.RequestTimeout))
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.opts.ClientRate > 0 {
			r.Use(s.limitClients(ratelimit.New(s.opts.ClientRate, s.opts.ClientBurst)))
		}
		r.Get("/search", s.handleSearch)
		// Record URLs are accepted as ids, so the id may contain slashes.
		r.Get("/books/*", s.handleGetBook)
		r.Get("/categories/{ndc}/books", s.handleCategoryBooks)
		r.Get("/new-arrivals", s.handleNewArrivals)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.notFound(w, "no such endpoint")
	})
}

// requestLogger logs one line per request through the server's logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
