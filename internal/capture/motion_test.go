package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestMotionGate_FirstFrameMoves(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if moved, _ := g.Moved(&frame); !moved {
		t.Error("first frame should count as moved")
	}
}

func TestMotionGate_StillFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	g.Moved(&frame)
	for i := 0; i < maxStillReuse; i++ {
		moved, pct := g.Moved(&frame)
		if moved {
			t.Fatalf("still frame %d reported motion (%.2f%%)", i, pct)
		}
	}

	// A long still run lets one frame through.
	if moved, _ := g.Moved(&frame); !moved {
		t.Error("expected a refresh after a run of still frames")
	}
}

func TestMotionGate_Change(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Moved(&black)
	moved, pct := g.Moved(&white)
	if !moved {
		t.Errorf("black to white should move, changed = %f", pct)
	}
	if pct < 50 {
		t.Errorf("changed = %f, expected > 50%% for black to white", pct)
	}
}

func TestMotionGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	g.Moved(&frame)
	g.Reset()
	if g.hasPrev {
		t.Error("Reset should drop the reference frame")
	}
	if moved, _ := g.Moved(&frame); !moved {
		t.Error("first frame after Reset should count as moved")
	}
}

func TestMotionGate_NilFrame(t *testing.T) {
	g := NewMotionGate(1.0)
	defer g.Close()

	if moved, _ := g.Moved(nil); !moved {
		t.Error("nil frame should never suppress detection")
	}
}

func TestMotionGate_Close_Multiple(t *testing.T) {
	g := NewMotionGate(1.0)
	g.Close()
	g.Close()
}
