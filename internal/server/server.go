// Package server exposes the aggregation client as a JSON API for the
// dashboard.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/geesthacht-opendata/internal/ckan/aggregator"
	"github.com/geesthacht-opendata/internal/common/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Config struct {
	Addr           string
	RequestTimeout time.Duration
}

type Server struct {
	client aggregator.Aggregator
	config Config
	logger logger.Logger
	server *http.Server
}

func NewServer(client aggregator.Aggregator, cfg Config, log logger.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		client: client,
		config: cfg,
		logger: log,
	}
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi router. Exposed so tests can drive it with httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets", s.handleSearch)
		r.Get("/datasets/multi", s.handleSearchMultiTerm)
		r.Get("/datasets/{id}", s.handleGetPackage)
		r.Get("/resources", s.handleFetchResource)
	})
	return r
}

// Start serves until the server is shut down. http.ErrServerClosed is not
// treated as an error, so Start returns nil once Stop has been called, even
// if Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("HTTP request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}
