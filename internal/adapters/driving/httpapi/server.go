// Package httpapi serves federated queries, document details and index
// maintenance over HTTP with a chi router.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("httpapi: query service is required")

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Ports aggregates the services the HTTP API drives.
type Ports struct {
	// Query runs federated queries. Required.
	Query driving.QueryService

	// Document serves GET /documents/{id} and GET /corpus.
	Document driving.DocumentService

	// Index serves GET /index and POST /index/rebuild.
	Index driving.IndexService

	// Health backs GET /healthz. Without it the endpoint always reports ok.
	Health HealthChecker
}

// Server is the HTTP query API.
type Server struct {
	ports  Ports
	router chi.Router
}

// NewServer creates the API and registers its routes.
func NewServer(ports Ports) (*Server, error) {
	if ports.Query == nil {
		return nil, ErrMissingQueryService
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	s := &Server{ports: ports, router: r}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/query", s.handleQuery)
	s.router.Get("/documents/{id}", s.handleDocument)
	s.router.Get("/corpus", s.handleCorpus)
	s.router.Route("/index", func(r chi.Router) {
		r.Get("/", s.handleIndexInfo)
		r.Post("/rebuild", s.handleIndexRebuild)
		r.Post("/extend", s.handleIndexExtend)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start),
			middleware.GetReqID(r.Context()))
	})
}
