// Package server provides the HTTP API for fuda.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/flashcards"
	"github.com/hyperjump/fuda/internal/ingest"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/storage"
)

// WatchService reports the watched slide folders.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the fuda API.
type Server struct {
	decks    *flashcards.Service
	ingester *ingest.Ingester
	storage  storage.Storage
	index    keyword.SlideIndex
	speller  *keyword.Speller
	watch    WatchService
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSpeller enables "did you mean" suggestions for searches without hits.
func WithSpeller(sp *keyword.Speller) Option {
	return func(s *Server) { s.speller = sp }
}

// WithWatch reports watched folders in /status.
func WithWatch(w WatchService) Option {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	decks *flashcards.Service,
	ingester *ingest.Ingester,
	store storage.Storage,
	index keyword.SlideIndex,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		decks:    decks,
		ingester: ingester,
		storage:  store,
		index:    index,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.config != nil && s.config.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/flashcards", s.handleGenerate)
		r.Delete("/flashcards/{slideID}", s.handleInvalidate)

		r.Post("/slides", s.handleIngestSlide)
		r.Get("/slides/search", s.handleSearch)
		r.Get("/slides/{id}", s.handleGetSlide)
		r.Delete("/slides/{id}", s.handleDeleteSlide)
		r.Get("/slides/{id}/decks", s.handleListDecks)

		r.Put("/profiles/{userID}", s.handlePutProfile)
		r.Put("/supplements", s.handlePutSupplement)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
