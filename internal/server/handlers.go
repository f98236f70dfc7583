package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"powerlab/internal/service"
	"powerlab/internal/streams"
)

func (s *Server) activityID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.badRequest(w, "invalid activity id")
		return 0, false
	}
	return id, true
}

// parseKeys splits a comma-separated key list and validates every entry.
// An empty list is valid and means the caller's default.
func (s *Server) parseKeys(w http.ResponseWriter, csv string) ([]string, bool) {
	if csv == "" {
		return nil, true
	}
	parts := strings.Split(csv, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		key := strings.TrimSpace(p)
		if key == "" {
			continue
		}
		if !streams.ValidKey(key) {
			s.badRequest(w, fmt.Sprintf("unknown stream key %q", key))
			return nil, false
		}
		keys = append(keys, key)
	}
	return keys, true
}

func (s *Server) parseResolution(w http.ResponseWriter, v string) (streams.Resolution, bool) {
	res, err := streams.ParseResolution(v)
	if err != nil {
		s.badRequest(w, err.Error())
		return "", false
	}
	return res, true
}

func (s *Server) handleAllData(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	keys, ok := s.parseKeys(w, q.Get("keys"))
	if !ok {
		return
	}
	if _, ok := s.parseResolution(w, q.Get("resolution")); !ok {
		return
	}

	doc, err := s.svc.GetAllData(r.Context(), service.Request{
		ActivityID:  id,
		AccessToken: q.Get("access_token"),
		DeviceID:    q.Get("device_id"),
		Keys:        keys,
		Resolution:  q.Get("resolution"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondRaw(w, http.StatusOK, doc)
}

func (s *Server) handleIntervals(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	doc, err := s.svc.Intervals(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondRaw(w, http.StatusOK, doc)
}

func (s *Server) handleSimpleIntervals(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	simple, err := s.svc.SimpleIntervals(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, simple)
}

type availableResponse struct {
	ActivityID       int64    `json:"activity_id"`
	AvailableStreams []string `json:"available_streams"`
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	avail, err := s.svc.Available(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, availableResponse{ActivityID: id, AvailableStreams: avail})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		s.badRequest(w, "missing stream key")
		return
	}
	if !streams.ValidKey(key) {
		s.badRequest(w, fmt.Sprintf("unknown stream key %q", key))
		return
	}
	res, ok := s.parseResolution(w, q.Get("resolution"))
	if !ok {
		return
	}

	payload, err := s.svc.Stream(r.Context(), id, key, res)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, payload)
}

type multiStreamsRequest struct {
	Keys       []string `json:"keys"`
	Resolution string   `json:"resolution"`
}

type multiStreamsResponse struct {
	ActivityID int64                   `json:"activity_id"`
	Streams    []service.StreamPayload `json:"streams"`
}

func (s *Server) handleMultiStreams(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	var req multiStreamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if len(req.Keys) == 0 {
		s.badRequest(w, "no stream keys requested")
		return
	}
	for _, key := range req.Keys {
		if !streams.ValidKey(key) {
			s.badRequest(w, fmt.Sprintf("unknown stream key %q", key))
			return
		}
	}
	res, ok := s.parseResolution(w, req.Resolution)
	if !ok {
		return
	}

	payloads, err := s.svc.MultiStreams(r.Context(), id, req.Keys, res)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, multiStreamsResponse{ActivityID: id, Streams: payloads})
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	metric := chi.URLParam(r, "metric")
	if !service.ValidMetric(metric) {
		s.badRequest(w, fmt.Sprintf("unknown metric %q", metric))
		return
	}
	q := r.URL.Query()
	force, _ := strconv.ParseBool(q.Get("force_recalculate"))
	req := service.Request{
		ActivityID:  id,
		AccessToken: q.Get("access_token"),
		DeviceID:    q.Get("device_id"),
	}

	if metric == "zones" {
		if key := q.Get("key"); key != "" {
			if key != "power" && key != "heartrate" {
				s.badRequest(w, fmt.Sprintf("unknown zone key %q", key))
				return
			}
			buckets, err := s.svc.ZoneBuckets(r.Context(), req, key, force)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			s.respondRaw(w, http.StatusOK, buckets)
			return
		}
	}

	section, err := s.svc.Metric(r.Context(), req, metric, force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondRaw(w, http.StatusOK, section)
}

type invalidateResponse struct {
	ActivityID  int64 `json:"activity_id,omitempty"`
	Invalidated int   `json:"invalidated"`
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activityID(w, r)
	if !ok {
		return
	}
	n, err := s.cache.Invalidate(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, invalidateResponse{ActivityID: id, Invalidated: n})
}

func (s *Server) handleCacheInvalidateAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.cache.InvalidateAll()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, invalidateResponse{Invalidated: n})
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.cache.Status()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

type toggleResponse struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleCacheToggle(w http.ResponseWriter, r *http.Request) {
	enabled := !s.cache.Enabled()
	if err := s.cache.SetEnabled(enabled); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toggleResponse{Enabled: enabled})
}

type dailyStateResponse struct {
	AthleteID   int64  `json:"athlete_id"`
	Date        string `json:"date"`
	Fitness     int    `json:"fitness"`
	Fatigue     int    `json:"fatigue"`
	DailyStatus int    `json:"daily_status"`
}

func (s *Server) handleDailyState(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.badRequest(w, "invalid athlete id")
		return
	}
	ref := time.Now().UTC()
	if date := r.URL.Query().Get("date"); date != "" {
		ref, err = time.Parse("2006-01-02", date)
		if err != nil {
			s.badRequest(w, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
			return
		}
	}

	state, err := s.svc.UpdateDailyState(id, ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, dailyStateResponse{
		AthleteID:   state.AthleteID,
		Date:        state.Date,
		Fitness:     state.Fitness,
		Fatigue:     state.Fatigue,
		DailyStatus: state.DailyStatus,
	})
}
