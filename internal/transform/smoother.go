package transform

import (
	"github.com/ayusman/formcoach/internal/pose"
)

// DefaultAlpha is the smoothing factor used when none is configured.
const DefaultAlpha = 0.5

// Smoother applies exponential smoothing per landmark. It owns the previous
// smoothed point of every landmark it has seen and is not safe for
// concurrent use; each session owns its own Smoother.
type Smoother struct {
	Alpha   float64
	Enabled bool

	prev map[pose.LandmarkType]ScreenPoint
}

// NewSmoother creates an enabled Smoother. Alpha outside [0, 1) falls back
// to DefaultAlpha.
func NewSmoother(alpha float64) *Smoother {
	if alpha < 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &Smoother{
		Alpha:   alpha,
		Enabled: true,
		prev:    make(map[pose.LandmarkType]ScreenPoint),
	}
}

// Smooth blends cur with the previous smoothed point for t and remembers the
// result. The first sighting of a landmark, or a disabled smoother, returns
// cur unchanged.
func (s *Smoother) Smooth(t pose.LandmarkType, cur ScreenPoint) ScreenPoint {
	if s.prev == nil {
		s.prev = make(map[pose.LandmarkType]ScreenPoint)
	}

	out := cur
	if prev, ok := s.prev[t]; ok && s.Enabled {
		out = Blend(prev, cur, s.Alpha)
	}
	s.prev[t] = out
	return out
}

// Reset forgets all previous points.
func (s *Smoother) Reset() {
	s.prev = make(map[pose.LandmarkType]ScreenPoint)
}
