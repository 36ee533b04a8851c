// Package worker provides the interactive HTTP front end for the
// clustering pipeline. It holds the current dataset and the embedding
// cache as process-wide state shared across requests.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/issuecluster/internal/config"
	"github.com/thebtf/issuecluster/internal/dataset"
	"github.com/thebtf/issuecluster/internal/embedding"
	"github.com/thebtf/issuecluster/internal/pipeline"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout bounds request handling except clustering,
	// which can sit behind a slow embedding call.
	DefaultHTTPTimeout = 30 * time.Second

	// ClusteringTimeout bounds a clustering request end to end,
	// including the embedding call on a cache miss.
	ClusteringTimeout = 5 * time.Minute

	// MaxUploadBytes limits uploaded CSV size.
	MaxUploadBytes = 64 << 20
)

// upload is the dataset currently held by the service.
type upload struct {
	name string
	ds   *dataset.Dataset
}

// Service is the worker service orchestrator.
type Service struct {
	version string
	config  *config.Config
	runner  *pipeline.Runner

	// Current upload. A new upload replaces the previous one; an upload
	// racing a clustering request is last-writer-wins on this slot.
	mu      sync.RWMutex
	current *upload

	router *chi.Mux
	server *http.Server
}

// NewService creates a new worker service. The embedding model is
// constructed from configuration; a missing API key is an error because
// every clustering request needs the model.
func NewService(version string, cfg *config.Config) (*Service, error) {
	model, err := embedding.NewOpenAIModel(embedding.OpenAIOptions{
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding model: %w", err)
	}

	svc := &Service{
		version: version,
		config:  cfg,
		runner:  pipeline.NewRunner(embedding.NewCache(model, cfg.CacheDir)),
		router:  chi.NewRouter(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc, nil
}

// newServiceWithRunner wires a prebuilt runner. Tests use it to inject a
// fake embedding model.
func newServiceWithRunner(version string, cfg *config.Config, runner *pipeline.Runner) *Service {
	svc := &Service{
		version: version,
		config:  cfg,
		runner:  runner,
		router:  chi.NewRouter(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

func (s *Service) setupMiddleware() {
	s.router.Use(RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(SecurityHeaders)
	s.router.Use(MaxBodySize(MaxUploadBytes))
}

func (s *Service) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/version", s.handleVersion)
	s.router.Get("/api/files", s.handleFiles)
	s.router.Post("/api/upload", s.handleUpload)
	s.router.Post("/api/clustering", s.handleClustering)
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Service) Router() http.Handler { return s.router }

// Start begins listening on the configured port.
func (s *Service) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.WorkerPort)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: DefaultHTTPTimeout,
	}

	ln := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ln <- err
		}
	}()

	select {
	case err := <-ln:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Info().Str("addr", addr).Msg("Worker listening")
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// setUpload replaces the current dataset slot.
func (s *Service) setUpload(name string, ds *dataset.Dataset) {
	s.mu.Lock()
	s.current = &upload{name: name, ds: ds}
	s.mu.Unlock()
}

// getUpload returns the current dataset slot, or nil.
func (s *Service) getUpload() *upload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
