package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/store"
)

// HistoryHandler serves finished sessions from the store.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, err := uuid.Parse(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type sessionRecordResponse struct {
	ID           string  `json:"id"`
	ExerciseType string  `json:"exercise_type"`
	TargetReps   int     `json:"target_reps"`
	TargetSets   int     `json:"target_sets"`
	Outcome      string  `json:"outcome"`
	Error        string  `json:"error,omitempty"`
	StartedAt    string  `json:"started_at"`
	EndedAt      string  `json:"ended_at"`
	Sets         int     `json:"sets"`
	TotalReps    int     `json:"total_reps"`
	AverageScore float64 `json:"average_score"`
}

type listSessionsResponse struct {
	Sessions []sessionRecordResponse `json:"sessions"`
}

type sessionResponse struct {
	session.Summary
	TotalReps int `json:"total_reps"`
}

func toRecordResponse(r *store.SessionRecord) sessionRecordResponse {
	return sessionRecordResponse{
		ID:           r.ID.String(),
		ExerciseType: string(r.ExerciseType),
		TargetReps:   r.TargetReps,
		TargetSets:   r.TargetSets,
		Outcome:      string(r.Outcome),
		Error:        r.Error,
		StartedAt:    r.StartedAt.Format(timeFormat),
		EndedAt:      r.EndedAt.Format(timeFormat),
		Sets:         r.Sets,
		TotalReps:    r.TotalReps,
		AverageScore: r.AverageScore,
	}
}

// list handles GET /api/sessions?exercise=squat&since=2026-01-02T00:00:00Z&limit=20.
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts store.ListOptions

	if v := q.Get("exercise"); v != "" {
		t, err := analyzer.ParseExerciseType(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown exercise")
			return
		}
		opts.Exercise = t
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(timeFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since, want RFC 3339")
			return
		}
		opts.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = n
	}

	records, err := h.store.Sessions().List(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionRecordResponse, 0, len(records)),
	}
	for _, rec := range records {
		response.Sessions = append(response.Sessions, toRecordResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and returns the full summary.
func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sum, err := h.store.Sessions().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Summary: *sum, TotalReps: sum.TotalReps()})
}

// delete handles DELETE /api/sessions/{id}.
func (h *HistoryHandler) delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
