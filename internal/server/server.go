// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package server exposes the admin control plane and the public search
// surface over HTTP.
package server

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/elastic/search-ops/internal/benchrunner"
	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/elasticsearch"
	"github.com/elastic/search-ops/internal/eval"
	"github.com/elastic/search-ops/internal/indexer"
	"github.com/elastic/search-ops/internal/logger"
	"github.com/elastic/search-ops/internal/reindex"
	"github.com/elastic/search-ops/internal/search"
)

// Services groups the engine-bound components the server exposes.
type Services struct {
	Engine       elasticsearch.Engine
	Search       *search.Service
	Indexer      *indexer.BulkIndexer
	Orchestrator *reindex.Orchestrator
	Rollback     *reindex.RollbackService
	Aliases      *reindex.AliasManager
	EvalRunner   *eval.Runner
	BenchRunner  *benchrunner.Runner
}

// Server is the HTTP boundary. Report writers and comparators are created per
// request so callers can override report parameters.
type Server struct {
	config   configuration.Configuration
	services Services
	validate *validator.Validate

	server *http.Server
}

// NewServer creates a server over the given services.
func NewServer(config configuration.Configuration, services Services) *Server {
	return &Server{
		config:   config,
		services: services,
		validate: validator.New(),
	}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/index/create", s.handleIndexCreate)
		r.Post("/index/bulk", s.handleIndexBulk)
		r.Post("/index/reindex", s.handleReindex)
		r.Post("/index/rollback", s.handleRollback)
		r.Post("/eval/run", s.handleEvalRun)
		r.Post("/eval/compare", s.handleEvalCompare)
		r.Post("/eval/regression", s.handleEvalRegression)
		r.Post("/performance/benchmark", s.handleBenchmark)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/health", s.handleHealth)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.config.Server.Address,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	logger.Infof("server listening on %s", s.config.Server.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	return s.server.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) evalReportsDir() string {
	return s.config.Reports.BaseDir
}

func (s *Server) performanceReportsDir() string {
	return filepath.Join(s.config.Reports.BaseDir, "performance")
}
