// Package server exposes the league service over JSON HTTP routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/KasraH/fpl-combos/pkg/league"
	"github.com/KasraH/fpl-combos/pkg/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to a league service.
type Server struct {
	svc    *league.Service
	logger zerolog.Logger
	router *mux.Router
}

// New builds the server and its routes.
func New(svc *league.Service, logger zerolog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger.With().Str("component", "server").Logger(),
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// API routes sit on the root router so a wrong method answers 405.
	r.HandleFunc("/api/load_league", s.handleLoadLeague).Methods(http.MethodPost)
	r.HandleFunc("/api/search_players", s.handleSearchPlayers).Methods(http.MethodPost)
	r.HandleFunc("/api/analyze_combination", s.handleAnalyzeCombination).Methods(http.MethodPost)
	r.HandleFunc("/api/league_info", s.handleLeagueInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/cache_info", s.handleCacheInfo).Methods(http.MethodGet)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
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

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		ev := s.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = s.logger.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
