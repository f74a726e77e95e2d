package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/formcoach/internal/session"
)

// LiveSession is the control surface of a running session.
type LiveSession interface {
	State() session.State
	Pause() error
	Resume() error
	SkipCountdown() error
	SkipRest() error
	CheckItem(id string) error
	Stop() error
}

// SessionProvider returns the session currently running, if any.
type SessionProvider interface {
	Current() (LiveSession, bool)
}

// LiveHandler exposes the running session's state and controls.
type LiveHandler struct {
	provider SessionProvider
}

// NewLiveHandler creates a new LiveHandler backed by provider.
func NewLiveHandler(p SessionProvider) *LiveHandler {
	return &LiveHandler{provider: p}
}

// ServeHTTP handles:
//
//	GET  /api/live/state
//	POST /api/live/pause | resume | skip-countdown | skip-rest | stop
//	POST /api/live/check/{item}
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/live"), "/")

	live, ok := h.provider.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "No session running")
		return
	}

	if path == "state" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, live.State())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var err error
	switch {
	case path == "pause":
		err = live.Pause()
	case path == "resume":
		err = live.Resume()
	case path == "skip-countdown":
		err = live.SkipCountdown()
	case path == "skip-rest":
		err = live.SkipRest()
	case path == "stop":
		err = live.Stop()
	case strings.HasPrefix(path, "check/"):
		err = live.CheckItem(strings.TrimPrefix(path, "check/"))
	default:
		writeError(w, http.StatusNotFound, "Unknown command")
		return
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, live.State())
	case errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnknownItem):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotRunning):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
