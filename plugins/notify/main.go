// Package main is a formcoach event plugin that shows a desktop
// notification when a set or a session ends. It uses osascript on macOS and
// notify-send elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request is the event sent by formcoach on stdin.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	Exercise  string          `json:"exercise"`
	Config    json.RawMessage `json:"config"`
	Data      json.RawMessage `json:"data"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type pluginConfig struct {
	Title string `json:"title"`
}

type setData struct {
	SetNumber    int     `json:"set_number"`
	Reps         int     `json:"reps"`
	AverageScore float64 `json:"average_score"`
}

type summary struct {
	CompletedSets []setData `json:"completed_sets"`
	Outcome       string    `json:"outcome"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("decode request: %w", err))
		return
	}

	cfg := pluginConfig{Title: "formcoach"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("decode config: %w", err))
			return
		}
	}

	body, err := message(req)
	if err != nil {
		writeResponse(err)
		return
	}
	writeResponse(notify(cfg.Title, body))
}

// message renders the notification text for an event.
func message(req Request) (string, error) {
	name := displayName(req.Exercise)

	switch req.Event {
	case "set_completed":
		var set setData
		if err := json.Unmarshal(req.Data, &set); err != nil {
			return "", fmt.Errorf("decode set: %w", err)
		}
		return fmt.Sprintf("%s set %d done: %d reps, form %.0f/100", name, set.SetNumber, set.Reps, set.AverageScore), nil

	case "session_finished":
		var sum summary
		if err := json.Unmarshal(req.Data, &sum); err != nil {
			return "", fmt.Errorf("decode summary: %w", err)
		}
		reps := 0
		for _, s := range sum.CompletedSets {
			reps += s.Reps
		}
		switch sum.Outcome {
		case "completed":
			return fmt.Sprintf("%s workout complete: %d sets, %d reps", name, len(sum.CompletedSets), reps), nil
		case "stopped":
			return fmt.Sprintf("%s workout stopped after %d reps", name, reps), nil
		default:
			return fmt.Sprintf("%s workout ended with an error after %d reps", name, reps), nil
		}
	}

	return "", fmt.Errorf("unsupported event: %s", req.Event)
}

func displayName(exercise string) string {
	if exercise == "" {
		return "Workout"
	}
	words := strings.Split(exercise, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := "display notification " + strconv.Quote(body) + " with title " + strconv.Quote(title)
		cmd = exec.Command("osascript", "-e", script)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("notify-send", title, body)
	default:
		return errors.New("notifications are not supported on " + runtime.GOOS)
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
