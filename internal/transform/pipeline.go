package transform

import (
	"github.com/ayusman/formcoach/internal/pose"
)

// Viewport describes how detector output maps onto the screen.
type Viewport struct {
	Image    Size `json:"image" yaml:"image"`
	Screen   Size `json:"screen" yaml:"screen"`
	Mirrored bool `json:"mirrored" yaml:"mirrored"`
}

// Pipeline converts raw detector frames into smoothed screen-space frames.
type Pipeline struct {
	viewport Viewport
	smoother *Smoother
}

// NewPipeline creates a Pipeline. A nil smoother disables smoothing.
func NewPipeline(v Viewport, s *Smoother) *Pipeline {
	return &Pipeline{viewport: v, smoother: s}
}

// Apply returns a new frame whose landmark positions are in screen pixels.
// Landmarks that cannot be transformed are left out rather than defaulted.
// Frames without a detected pose are returned as-is and leave the smoothing
// state untouched. Z is scaled by the screen width so it stays comparable
// to X.
func (p *Pipeline) Apply(f *pose.Frame) *pose.Frame {
	if f == nil || !f.PoseDetected {
		return f
	}

	out := &pose.Frame{
		Landmarks:    make(map[pose.LandmarkType]pose.Landmark, len(f.Landmarks)),
		PoseDetected: true,
		Timestamp:    f.Timestamp,
	}

	for t, l := range f.Landmarks {
		if !l.Valid() {
			continue
		}
		sp, ok := TransformChecked(l.Position, p.viewport.Image, p.viewport.Screen, p.viewport.Mirrored)
		if !ok {
			continue
		}
		if p.smoother != nil {
			sp = p.smoother.Smooth(t, sp)
		}
		out.Landmarks[t] = pose.Landmark{
			Type:       t,
			Position:   pose.Point3D{X: sp.X, Y: sp.Y, Z: l.Position.Z * p.viewport.Screen.Width},
			Likelihood: l.Likelihood,
		}
	}

	return out
}

// Reset clears the smoothing history.
func (p *Pipeline) Reset() {
	if p.smoother != nil {
		p.smoother.Reset()
	}
}
