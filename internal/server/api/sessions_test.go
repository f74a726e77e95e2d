package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func saveSession(t *testing.T, s *store.Store, exercise analyzer.ExerciseType, started time.Time, reps ...int) session.Summary {
	t.Helper()

	sum := session.Summary{
		ID: uuid.New(),
		Config: session.Config{
			ExerciseType: exercise,
			TargetReps:   10,
			TargetSets:   len(reps),
			RestDuration: 30 * time.Second,
		},
		StartedAt: started,
		EndedAt:   started.Add(5 * time.Minute),
		Outcome:   session.OutcomeCompleted,
	}
	for i, n := range reps {
		best := 90.0
		sum.CompletedSets = append(sum.CompletedSets, session.SetData{
			SetNumber:    i + 1,
			Reps:         n,
			AverageScore: 80,
			BestRepScore: &best,
			Duration:     time.Minute,
			Issues: []session.IssueSummary{
				{Issue: analyzer.NewIssue(analyzer.KneeOverToe), Count: 2},
			},
		})
	}
	if err := s.Sessions().Save(sum); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return sum
}

func TestHistoryHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewHistoryHandler(s)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	saveSession(t, s, analyzer.Squat, base, 10, 8)
	saveSession(t, s, analyzer.PushUp, base.Add(24*time.Hour), 12)
	latest := saveSession(t, s, analyzer.Squat, base.Add(48*time.Hour), 10)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{name: "all sessions", query: "", wantCode: http.StatusOK, wantCount: 3},
		{name: "by exercise", query: "?exercise=squat", wantCode: http.StatusOK, wantCount: 2},
		{name: "since", query: "?since=2026-05-02T00:00:00Z", wantCode: http.StatusOK, wantCount: 2},
		{name: "limit", query: "?limit=1", wantCode: http.StatusOK, wantCount: 1},
		{name: "unknown exercise", query: "?exercise=lunge", wantCode: http.StatusBadRequest},
		{name: "bad since", query: "?since=yesterday", wantCode: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-1", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var response listSessionsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Sessions) != tt.wantCount {
				t.Fatalf("expected %d sessions, got %d", tt.wantCount, len(response.Sessions))
			}
			if response.Sessions[0].ID != latest.ID.String() {
				t.Errorf("sessions should be newest first, got %s", response.Sessions[0].ID)
			}
		})
	}
}

func TestHistoryHandler_ListEmpty(t *testing.T) {
	handler := NewHistoryHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Body.String(); got != "{\"sessions\":[]}\n" {
		t.Errorf("expected an empty list, got %s", got)
	}
}

func TestHistoryHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewHistoryHandler(s)
	sum := saveSession(t, s, analyzer.Squat, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), 10, 7)

	t.Run("returns the full summary", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sum.ID.String(), nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response struct {
			ID            string `json:"id"`
			Outcome       string `json:"outcome"`
			TotalReps     int    `json:"total_reps"`
			CompletedSets []struct {
				Reps   int `json:"reps"`
				Issues []struct {
					Type     string `json:"type"`
					Priority string `json:"priority"`
					Count    int    `json:"count"`
				} `json:"issues"`
			} `json:"completed_sets"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.ID != sum.ID.String() {
			t.Errorf("expected id %s, got %s", sum.ID, response.ID)
		}
		if response.TotalReps != 17 {
			t.Errorf("expected total_reps 17, got %d", response.TotalReps)
		}
		if len(response.CompletedSets) != 2 {
			t.Fatalf("expected 2 sets, got %d", len(response.CompletedSets))
		}
		issues := response.CompletedSets[0].Issues
		if len(issues) != 1 || issues[0].Type != string(analyzer.KneeOverToe) || issues[0].Count != 2 {
			t.Errorf("unexpected issues %+v", issues)
		}
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("returns 400 for malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/not-a-uuid", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestHistoryHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewHistoryHandler(s)
	sum := saveSession(t, s, analyzer.ArmCurl, time.Now().UTC(), 12)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sum.ID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := s.Sessions().Get(sum.ID); err != store.ErrNotFound {
		t.Errorf("expected session to be deleted, got err %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sum.ID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHistoryHandler_MethodNotAllowed(t *testing.T) {
	handler := NewHistoryHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/sessions"},
		{http.MethodDelete, "/api/sessions"},
		{http.MethodPut, "/api/sessions/" + uuid.NewString()},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
