package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ambiware-labs/scribed/internal/catalog"
	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/ambiware-labs/scribed/internal/jobs"
)

// Server exposes the session API over HTTP.
type Server struct {
	store      *catalog.Store
	dispatcher jobs.Dispatcher
	storage    config.StorageConfig
	log        *slog.Logger
	httpSrv    *http.Server
}

func New(store *catalog.Store, dispatcher jobs.Dispatcher, storage config.StorageConfig, log *slog.Logger) *Server {
	return &Server{
		store:      store,
		dispatcher: dispatcher,
		storage:    storage,
		log:        log.With(slog.String("component", "http")),
	}
}

// Handler builds the API routing table. Health and metrics endpoints are
// attached by the runtime, not here.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/uploads", s.handleUpload)
	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/process", s.handleProcessSession)
	mux.HandleFunc("GET /v1/sessions/{id}/transcript", s.handleGetTranscript)
	mux.HandleFunc("GET /v1/sessions/{id}/notes", s.handleGetNotes)
	return s.logRequests(mux)
}

// Start begins serving on the configured bind address.
func (s *Server) Start(cfg config.HTTPConfig, extra func(mux *http.ServeMux)) error {
	mux := http.NewServeMux()
	mux.Handle("/v1/", s.Handler())
	if extra != nil {
		extra(mux)
	}
	addr := net.JoinHostPort(cfg.Bind, fmt.Sprintf("%d", cfg.Port))
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http server listening", slog.String("addr", addr))
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}
