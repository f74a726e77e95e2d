// Package transform maps detector-normalized landmarks into screen space and
// smooths them across frames to suppress detector jitter.
package transform

import (
	"math"

	"github.com/ayusman/formcoach/internal/pose"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive and finite.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// ScreenPoint is a landmark position in device-screen pixels.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform maps a detector-normalized point into screen pixels.
//
// The preview of size image is scaled to fill screen without distortion: the
// per-axis scale factors are computed independently and the larger one is
// applied to both axes, with the overflow cropped equally on each side.
// mirrored flips the result horizontally, as for a front-facing camera.
func Transform(p pose.Point3D, image, screen Size, mirrored bool) ScreenPoint {
	sp, _ := TransformChecked(p, image, screen, mirrored)
	return sp
}

// TransformChecked is Transform that also reports whether the inputs were
// usable. Invalid sizes or non-finite coordinates return the zero point.
func TransformChecked(p pose.Point3D, image, screen Size, mirrored bool) (ScreenPoint, bool) {
	if !image.Valid() || !screen.Valid() {
		return ScreenPoint{}, false
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return ScreenPoint{}, false
	}

	scaleX := screen.Width / image.Width
	scaleY := screen.Height / image.Height
	scale := math.Max(scaleX, scaleY)

	offsetX := (screen.Width - image.Width*scale) / 2
	offsetY := (screen.Height - image.Height*scale) / 2

	x := p.X*image.Width*scale + offsetX
	y := p.Y*image.Height*scale + offsetY

	if mirrored {
		x = screen.Width - x
	}

	return ScreenPoint{X: x, Y: y}, true
}

// Blend moves prev toward cur: prev + (cur - prev) * (1 - alpha).
// alpha 0 returns cur; alpha close to 1 barely moves.
func Blend(prev, cur ScreenPoint, alpha float64) ScreenPoint {
	w := 1 - alpha
	return ScreenPoint{
		X: prev.X + (cur.X-prev.X)*w,
		Y: prev.Y + (cur.Y-prev.Y)*w,
	}
}
