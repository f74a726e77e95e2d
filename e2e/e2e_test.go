package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/app"
	"github.com/ayusman/formcoach/internal/capture"
	"github.com/ayusman/formcoach/internal/config"
	"github.com/ayusman/formcoach/internal/detector"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/server"
	"github.com/ayusman/formcoach/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "data.db")
	cfg.Plugins.Dir = filepath.Join(t.TempDir(), "plugins")
	cfg.Camera.Width, cfg.Camera.Height = 480, 480
	cfg.Screen.Width, cfg.Screen.Height = 960, 960
	cfg.Smoothing.Enabled = false
	return cfg
}

func squatWorkout(reps int, bottom float64) []*pose.Frame {
	frames := []*pose.Frame{pose.SquatPose(170, 20)}
	for i := 0; i < reps; i++ {
		for _, angle := range pose.RepAngles(170, bottom, 9) {
			frames = append(frames, pose.SquatPose(angle, 20))
		}
	}
	return frames
}

// feed collects live messages until the finished message arrives.
type feed struct {
	mu       sync.Mutex
	messages []server.Message
	done     chan struct{}
}

func watch(t *testing.T, url string) *feed {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/api/live/ws", nil)
	if err != nil {
		t.Fatalf("dial live feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	f := &feed{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		for {
			var msg server.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			f.mu.Lock()
			f.messages = append(f.messages, msg)
			f.mu.Unlock()
			if msg.Type == server.MessageFinished {
				return
			}
		}
	}()
	return f
}

func (f *feed) count(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s status = %d: %s", url, resp.StatusCode, body)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func waitForMetric(t *testing.T, client *http.Client, url, line string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.Get(url + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if strings.Contains(string(body), line) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("metric %q never appeared", line)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestE2E_ReplayWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	application, err := app.New(testConfig(t))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ts := httptest.NewServer(application.Handler())
	defer ts.Close()
	client := ts.Client()

	// Round-trip the workout through the recording format, as the record
	// and replay commands do.
	var buf bytes.Buffer
	if err := pose.WriteRecording(&buf, squatWorkout(4, 80)); err != nil {
		t.Fatalf("WriteRecording() error = %v", err)
	}
	frames, err := pose.LoadRecording(&buf)
	if err != nil {
		t.Fatalf("LoadRecording() error = %v", err)
	}

	live := watch(t, ts.URL)
	waitForMetric(t, client, ts.URL, "formcoach_live_clients 1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := session.Config{ExerciseType: analyzer.Squat, TargetReps: 2, TargetSets: 2, RestDuration: time.Minute}
	sum, err := application.RunSession(ctx, cfg, pose.NewReplaySource(frames), true)
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}

	t.Run("Summary", func(t *testing.T) {
		if sum.Outcome != session.OutcomeCompleted {
			t.Errorf("outcome = %s, want completed", sum.Outcome)
		}
		if len(sum.CompletedSets) != 2 {
			t.Fatalf("sets = %d, want 2", len(sum.CompletedSets))
		}
		for _, set := range sum.CompletedSets {
			if set.Reps != 2 {
				t.Errorf("set %d reps = %d, want 2", set.SetNumber, set.Reps)
			}
			if set.AverageScore < 0 || set.AverageScore > 100 {
				t.Errorf("set %d score %v out of range", set.SetNumber, set.AverageScore)
			}
		}
	})

	t.Run("LiveFeed", func(t *testing.T) {
		select {
		case <-live.done:
		case <-time.After(2 * time.Second):
			t.Fatal("live feed never reported the finished session")
		}
		if live.count(server.MessageSetCompleted) != 2 {
			t.Errorf("set_completed messages = %d, want 2", live.count(server.MessageSetCompleted))
		}
		if live.count(server.MessageState) == 0 {
			t.Error("expected state messages")
		}
	})

	t.Run("History", func(t *testing.T) {
		var listed struct {
			Sessions []struct {
				ID        string `json:"id"`
				TotalReps int    `json:"total_reps"`
				Outcome   string `json:"outcome"`
			} `json:"sessions"`
		}
		getJSON(t, client, ts.URL+"/api/sessions?exercise=squat", &listed)
		if len(listed.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(listed.Sessions))
		}
		if listed.Sessions[0].ID != sum.ID.String() || listed.Sessions[0].TotalReps != 4 {
			t.Errorf("unexpected listing %+v", listed.Sessions[0])
		}

		var detail struct {
			CompletedSets []json.RawMessage `json:"completed_sets"`
		}
		getJSON(t, client, ts.URL+"/api/sessions/"+sum.ID.String(), &detail)
		if len(detail.CompletedSets) != 2 {
			t.Errorf("detail sets = %d, want 2", len(detail.CompletedSets))
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		for _, want := range []string{
			`formcoach_reps{exercise="squat"} 4`,
			`formcoach_sessions{outcome="completed"} 1`,
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})
}

func TestE2E_CameraPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	application, err := app.New(testConfig(t))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	img := gocv.NewMatWithSize(480, 480, gocv.MatTypeCV8UC3)
	defer img.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&img}, true)

	det := detector.NewMockDetector()
	det.Queue(squatWorkout(2, 80)...)

	src := capture.NewCameraSource(cam, det, capture.SourceOptions{FPS: 100})
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := session.Config{ExerciseType: analyzer.Squat, TargetReps: 2, TargetSets: 1}
	sum, err := application.RunSession(ctx, cfg, src, true)
	if err != nil {
		t.Fatalf("RunSession() error = %v", err)
	}

	if sum.Outcome != session.OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", sum.Outcome)
	}
	if sum.TotalReps() != 2 {
		t.Errorf("reps = %d, want 2", sum.TotalReps())
	}
	if cam.IsOpen() {
		t.Error("camera should be released when the session ends")
	}
	if det.Calls() == 0 {
		t.Error("detector was never called")
	}
}
