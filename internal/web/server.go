package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"dumamon/internal/engine"
)

// Server exposes the latest published snapshots over HTTP.
type Server struct {
	mgr  *engine.Manager
	log  zerolog.Logger
	mux  *http.ServeMux
	http *http.Server
}

// NewServer creates a web server bound to addr.
func NewServer(addr string, mgr *engine.Manager, log zerolog.Logger) *Server {
	s := &Server{
		mgr: mgr,
		log: log,
		mux: http.NewServeMux(),
	}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/snapshot", s.handleSnapshots)
	s.mux.HandleFunc("GET /api/snapshot/{router}", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/routers", s.handleRouters)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Start runs the server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("web server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]*engine.Snapshot)
	for _, name := range s.mgr.Names() {
		snap, err := s.mgr.GetSnapshot(name)
		if err != nil {
			continue
		}
		out[name] = snap
	}
	s.writeJSON(w, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("router")
	snap, err := s.mgr.GetSnapshot(name)
	if err != nil {
		http.Error(w, "unknown router", http.StatusNotFound)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) handleRouters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.mgr.List())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}
