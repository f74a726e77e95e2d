package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ayusman/formcoach/internal/metrics"
)

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "speaker", "", EventSetCompleted)
	writePlugin(t, dir, "logger", "", EventSetCompleted, EventSessionFinished)

	// Ignored: a plain file, a directory without a manifest and a broken one.
	os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o644)
	os.MkdirAll(filepath.Join(dir, "empty"), 0o755)
	os.MkdirAll(filepath.Join(dir, "broken"), 0o755)
	os.WriteFile(filepath.Join(dir, "broken", "plugin.json"), []byte("{"), 0o644)

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	all := m.List()
	if len(all) != 2 {
		t.Fatalf("List() = %d plugins, want 2", len(all))
	}
	if all[0].Manifest.Name != "logger" || all[1].Manifest.Name != "speaker" {
		t.Errorf("List() not sorted: %s, %s", all[0].Manifest.Name, all[1].Manifest.Name)
	}

	p, err := m.Get("speaker")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Path != filepath.Join(dir, "speaker") || p.Executable != filepath.Join(dir, "speaker", "run.sh") {
		t.Errorf("unexpected location %q, %q", p.Path, p.Executable)
	}

	if got := m.Subscribers(EventSetCompleted); len(got) != 2 {
		t.Errorf("set_completed subscribers = %d, want 2", len(got))
	}
	finished := m.Subscribers(EventSessionFinished)
	if len(finished) != 1 || finished[0].Manifest.Name != "logger" {
		t.Errorf("session_finished subscribers = %v", finished)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if _, err := m.Get("nope"); err != ErrPluginNotFound {
		t.Errorf("Get() error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent"), nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Discover_Rescans(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "first", "")

	m := NewManager(dir, nil)
	m.Discover()
	os.RemoveAll(filepath.Join(dir, "first"))
	writePlugin(t, dir, "second", "")
	m.Discover()

	if _, err := m.Get("first"); err != ErrPluginNotFound {
		t.Error("removed plugin still listed")
	}
	if _, err := m.Get("second"); err != nil {
		t.Errorf("new plugin not found: %v", err)
	}
}

func TestDispatcher(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "events")

	writePlugin(t, dir, "journal", `cat >> `+out+`
echo >> `+out+`
echo '{"success":true}'
`, EventSetCompleted, EventSessionFinished)
	writePlugin(t, dir, "grumpy", `echo '{"success":false,"error":"nope"}'`+"\n", EventSessionFinished)
	writePlugin(t, dir, "crashy", "exit 3\n", EventSessionFinished)

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	mm := metrics.NewTestManager()
	d := NewDispatcher(m, 5*time.Second, nil, mm)

	if n := d.Dispatch(EventSetCompleted, "s1", "squat", map[string]int{"set_number": 1}); n != 1 {
		t.Errorf("set_completed started %d plugins, want 1", n)
	}
	if n := d.Dispatch(EventSessionFinished, "s1", "squat", map[string]string{"outcome": "completed"}); n != 3 {
		t.Errorf("session_finished started %d plugins, want 3", n)
	}
	d.Close()

	if n := d.Dispatch(EventSetCompleted, "s1", "squat", nil); n != 0 {
		t.Errorf("dispatch after Close started %d plugins", n)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	journal := string(data)
	if strings.Count(journal, `"session_id":"s1"`) != 2 {
		t.Errorf("journal = %s", journal)
	}
	if !strings.Contains(journal, `"event":"set_completed"`) || !strings.Contains(journal, `"outcome":"completed"`) {
		t.Errorf("journal missing events: %s", journal)
	}

	for _, c := range []struct {
		plugin, result string
		want           float64
	}{
		{"journal", ResultOK, 2},
		{"grumpy", ResultFailed, 1},
		{"crashy", ResultError, 1},
	} {
		got := testutil.ToFloat64(mm.CounterPluginRuns.WithLabelValues(c.plugin, c.result))
		if got != c.want {
			t.Errorf("plugin_runs{%s,%s} = %v, want %v", c.plugin, c.result, got, c.want)
		}
	}
}
