package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/formcoach/internal/analyzer"
)

// ExercisesHandler lists the supported exercises and their setup hints.
type ExercisesHandler struct{}

func NewExercisesHandler() *ExercisesHandler { return &ExercisesHandler{} }

// ServeHTTP handles GET /api/exercises and GET /api/exercises/{type}.
func (h *ExercisesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/exercises"), "/")
	if name == "" {
		writeJSON(w, http.StatusOK, map[string][]analyzer.Info{"exercises": analyzer.All()})
		return
	}

	info, ok := analyzer.Lookup(analyzer.ExerciseType(name))
	if !ok {
		writeError(w, http.StatusNotFound, "Exercise not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
