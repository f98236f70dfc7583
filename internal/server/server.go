// Package server exposes the analytics service over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"powerlab/internal/cache"
	"powerlab/internal/service"
	"powerlab/internal/store"
)

type Server struct {
	Router *chi.Mux
	svc    *service.ActivityService
	cache  *cache.ResultCache
	log    zerolog.Logger
}

type Options struct {
	Service *service.ActivityService
	Cache   *cache.ResultCache
	Log     zerolog.Logger
}

func New(opts Options) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, svc: opts.Service, cache: opts.Cache, log: opts.Log}

	r.Get("/health", s.handleHealth)

	r.Route("/activities", func(ar chi.Router) {
		ar.Get("/cache/status", s.handleCacheStatus)
		ar.Post("/cache/toggle", s.handleCacheToggle)
		ar.Delete("/cache/{id}", s.handleCacheInvalidate)
		ar.Delete("/cache", s.handleCacheInvalidateAll)

		ar.Get("/{id}/all", s.handleAllData)
		ar.Get("/{id}/intervals", s.handleIntervals)
		ar.Get("/{id}/intervals/simple", s.handleSimpleIntervals)
		ar.Get("/{id}/available", s.handleAvailable)
		ar.Get("/{id}/streams", s.handleStream)
		ar.Post("/{id}/multi-streams", s.handleMultiStreams)
		ar.Get("/{id}/{metric}", s.handleMetric)
	})

	r.Post("/athletes/{id}/daily-state/update", s.handleDailyState)

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response failed")
	}
}

func (s *Server) respondRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if _, err := w.Write(raw); err != nil {
		s.log.Error().Err(err).Msg("writing response failed")
	}
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps domain errors onto statuses: the not-found family keeps
// its message, anything else is logged and answered generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrActivityNotFound),
		errors.Is(err, store.ErrAthleteNotFound),
		errors.Is(err, store.ErrNoToken),
		errors.Is(err, service.ErrNoIntervals),
		errors.Is(err, service.ErrInsufficientHistory):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.log.Error().
			Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
