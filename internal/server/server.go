// Package server exposes the data quality pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/history"
	"github.com/KaramelBytes/dqguard-cli/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUpload caps request bodies at 32 MiB.
const DefaultMaxUpload = 32 << 20

// Options configures request defaults.
type Options struct {
	Anomaly     anomaly.Options
	Load        dataset.Options
	SuiteName   string
	TableName   string
	Dialect     export.Dialect
	PreviewRows int
	MaxUpload   int64
	Logger      *slog.Logger
	// History is optional; when set, anomaly and report requests are recorded.
	History *history.Store
}

// Server routes API requests.
type Server struct {
	router *chi.Mux
	opt    Options
	log    *slog.Logger
}

// New builds a server with middleware and routes installed.
func New(opt Options) *Server {
	if opt.Logger == nil {
		opt.Logger = logging.Discard()
	}
	if opt.PreviewRows <= 0 {
		opt.PreviewRows = 20
	}
	if opt.MaxUpload <= 0 {
		opt.MaxUpload = DefaultMaxUpload
	}
	if opt.Dialect == "" {
		opt.Dialect = export.ANSI
	}
	s := &Server{router: chi.NewRouter(), opt: opt, log: opt.Logger}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(instrument)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/profile", s.handleProfile)
		r.Post("/suggest", s.handleSuggest)
		r.Post("/preview", s.handlePreview)
		r.Post("/anomalies", s.handleAnomalies)
		r.Post("/export/sql", s.handleExportSQL)
		r.Post("/export/suite", s.handleExportSuite)
		r.Post("/export/report", s.handleExportReport)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
