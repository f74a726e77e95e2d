// Package plugin runs external programs when training events happen, such as
// a finished set or session. A plugin is a directory holding a plugin.json
// manifest and an executable that reads one Request as JSON on stdin and
// writes one Response as JSON on stdout.
package plugin

import "encoding/json"

// Events a plugin can subscribe to.
const (
	EventSetCompleted    = "set_completed"
	EventSessionFinished = "session_finished"
)

// Manifest describes a plugin and the events it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Subscribes reports whether the manifest lists event.
func (m Manifest) Subscribes(event string) bool {
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	Exercise  string          `json:"exercise"`
	Config    json.RawMessage `json:"config,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
