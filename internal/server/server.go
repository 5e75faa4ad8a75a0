// Package server exposes the wiki over HTTP: a JSON API under /api and
// server-rendered pages.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/vesa/internal/config"
	"github.com/hyperjump/vesa/internal/models"
)

// Documents is the document service as used by the handlers.
type Documents interface {
	Create(ctx context.Context, input *models.DocumentInput) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Update(ctx context.Context, id string, input *models.DocumentInput) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*models.Document, error)
	Search(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error)
	Relate(ctx context.Context, rel *models.Relationship) error
	GetRelated(ctx context.Context, id, relType string) ([]*models.RelatedDocument, error)
	GetGraph(ctx context.Context, depth int) (*models.DocumentGraph, error)
	Status(ctx context.Context) (*models.Status, error)
}

// Server is the HTTP server.
type Server struct {
	docs    Documents
	config  config.ServerConfig
	logger  *zap.Logger
	pages   *pageSet
	timeout time.Duration
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New builds a Server. It fails only when the embedded templates do not parse.
func New(docs Documents, cfg config.ServerConfig, opts ...Option) (*Server, error) {
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{docs: docs, config: cfg, logger: zap.NewNop(), pages: pages, timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Get("/search", s.handleSearch)
		r.Get("/graph", s.handleGraph)
		r.Post("/relationships", s.handleRelate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
		r.Get("/{id}/related", s.handleRelated)
	})

	r.Get("/", s.pageHome)
	r.Get("/search", s.pageSearch)
	r.Get("/graph", s.pageGraph)
	r.Get("/documents/new", s.pageNew)
	r.Post("/documents/new", s.pageCreate)
	r.Get("/documents/{id}", s.pageView)
	r.Get("/documents/{id}/edit", s.pageEdit)
	r.Post("/documents/{id}/edit", s.pageUpdate)
	r.Post("/documents/{id}/delete", s.pageDelete)
	r.Post("/documents/{id}/relate", s.pageRelate)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "page not found")
	})
	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
