// Package geometry provides the joint-angle, distance and symmetry
// calculations the exercise analyzers compose into form checks.
//
// Angles are computed in the image plane (X, Y); the detector's depth
// estimate is too noisy for joint angles. Any NaN input yields NaN.
package geometry

import (
	"math"

	"github.com/ayusman/formcoach/internal/pose"
)

// Angle returns the interior angle at vertex formed by a and c, in degrees
// within [0, 180].
func Angle(a, vertex, c pose.Point3D) float64 {
	d := DirectedAngle(a, vertex, c)
	if d > 180 {
		return 360 - d
	}
	return d
}

// DirectedAngle returns the angle swept from the ray vertex→a to the ray
// vertex→c, in degrees within [0, 360).
func DirectedAngle(a, vertex, c pose.Point3D) float64 {
	r := math.Atan2(c.Y-vertex.Y, c.X-vertex.X) - math.Atan2(a.Y-vertex.Y, a.X-vertex.X)
	deg := r * 180 / math.Pi
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// Distance returns the Euclidean distance between two 3D points.
func Distance(a, b pose.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance2D returns the Euclidean distance in the image plane.
func Distance2D(a, b pose.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// SymmetryDelta returns the absolute difference between a left and right
// measurement.
func SymmetryDelta(left, right float64) float64 {
	return math.Abs(left - right)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b pose.Point3D) pose.Point3D {
	return pose.Point3D{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// LeanFromVertical returns how far the segment bottom→top tilts away from
// straight up, in degrees within [0, 180]. Image Y grows downward.
func LeanFromVertical(bottom, top pose.Point3D) float64 {
	up := pose.Point3D{X: bottom.X, Y: bottom.Y - 1}
	return Angle(up, bottom, top)
}

// ValidAngle reports whether a computed angle is usable.
func ValidAngle(deg float64) bool {
	return !math.IsNaN(deg) && deg >= 0 && deg < 360
}
