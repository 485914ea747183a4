package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ports.Health != nil {
		if err := s.ports.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuery serves GET /query?q=...&k=...&radius=...
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	var opts domain.QueryOptions
	if v := q.Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		opts.K = k
	}
	if v := q.Get("radius"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
		opts.RadiusKm = radius
	}

	result, err := s.ports.Query.Query(r.Context(), text, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// corpusResponse summarises the stored corpus.
type corpusResponse struct {
	Documents int            `json:"documents"`
	Topics    []domain.Topic `json:"topics"`
}

// handleCorpus serves GET /corpus.
func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	if s.ports.Document == nil {
		writeError(w, http.StatusNotImplemented, "document service not configured")
		return
	}
	count, err := s.ports.Document.Count(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	topics, err := s.ports.Document.Topics(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, corpusResponse{Documents: count, Topics: topics})
}

// handleDocument serves GET /documents/{id}.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if s.ports.Document == nil {
		writeError(w, http.StatusNotImplemented, "document service not configured")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	details, err := s.ports.Document.Details(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleIndexInfo(w http.ResponseWriter, r *http.Request) {
	if s.ports.Index == nil {
		writeError(w, http.StatusNotImplemented, "index service not configured")
		return
	}
	info, err := s.ports.Index.Info(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleIndexRebuild(w http.ResponseWriter, r *http.Request) {
	if s.ports.Index == nil {
		writeError(w, http.StatusNotImplemented, "index service not configured")
		return
	}
	info, err := s.ports.Index.Build(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleIndexExtend(w http.ResponseWriter, r *http.Request) {
	if s.ports.Index == nil {
		writeError(w, http.StatusNotImplemented, "index service not configured")
		return
	}
	info, err := s.ports.Index.Extend(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrModelUnavailable),
		errors.Is(err, domain.ErrVectorIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Warn("request failed: %v", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response: %v", err)
	}
}
