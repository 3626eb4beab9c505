// Package server provides the HTTP API for quizcast.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/quizcast/internal/config"
	"github.com/hyperjump/quizcast/internal/processor"
	"github.com/hyperjump/quizcast/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the quizcast API. Uploads are prepared
// during the request and published in the background.
type Server struct {
	processor *processor.Processor
	storage   storage.Storage
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	// baseCtx bounds background publish runs; Stop cancels it. mu orders
	// new runs against Stop so none is added once Stop has begun waiting.
	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	runs    sync.WaitGroup
}

// NewServer creates a server with the given dependencies.
func NewServer(
	proc *processor.Processor,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		processor: proc,
		storage:   storage,
		config:    cfg,
		logger:    logger,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Handler returns the router with all API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleUploadDocument)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
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
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop shuts down the HTTP server, cancels background publish runs at their
// next batch boundary and waits for them until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("publish runs still active at shutdown")
	}
	return err
}

// publishAsync runs prep in the background bound to the server's lifetime.
// It reports false, starting nothing, once Stop has been called.
func (s *Server) publishAsync(prep *processor.Prepared) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx.Err() != nil {
		return false
	}
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		run, err := s.processor.Publish(s.baseCtx, prep)
		if err != nil {
			s.logger.Error("publish failed", zap.String("run_id", prep.Run.ID), zap.Error(err))
			return
		}
		s.logger.Info("publish done", zap.String("run_id", run.ID), zap.String("summary", run.Summary()))
	}()
	return true
}
