package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionflight/internal/persistence"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()}
	status := http.StatusOK

	if s.health != nil {
		resp.Store = s.health.Health(r.Context())
		if !resp.Store.Healthy {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, resp)
}

// handleListRuns handles GET /runs?limit=N
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			s.writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := s.repo.ListRuns(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	s.writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

// handleGetRun handles GET /runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleRegimeStats handles GET /runs/{id}/regimes
func (s *Server) handleRegimeStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	stats, err := s.repo.RegimeStats(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if stats == nil {
		s.writeError(w, r, http.StatusNotFound, "run_not_found", "no run with id "+id.String())
		return
	}

	resp := RegimeStatsResponse{RunID: id.String(), Regimes: stats}
	for _, n := range stats {
		resp.Total += n
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleView handles GET /runs/{id}/view
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, run.Records, run.Config); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleNotFound handles 404 responses
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_run_id", "run id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*persistence.Run, bool) {
	id, ok := s.parseRunID(w, r)
	if !ok {
		return nil, false
	}

	run, err := s.repo.GetRun(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	if run == nil {
		s.writeError(w, r, http.StatusNotFound, "run_not_found", "no run with id "+id.String())
		return nil, false
	}
	return run, true
}

// writeJSON writes JSON response with proper error handling
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Error().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("Request failed")
	s.writeError(w, r, http.StatusInternalServerError, "internal_error", "request failed")
}
