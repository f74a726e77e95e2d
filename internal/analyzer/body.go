package analyzer

import (
	"github.com/ayusman/formcoach/internal/geometry"
	"github.com/ayusman/formcoach/internal/pose"
)

// part is a bit set of the joints an exercise needs on one side.
type part uint8

const (
	partShoulder part = 1 << iota
	partElbow
	partWrist
	partHip
	partKnee
	partAnkle
)

type sideLandmarks struct {
	shoulder, elbow, wrist, hip, knee, ankle, heel, toe pose.LandmarkType
}

var bodySides = [2]sideLandmarks{
	{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle, pose.LeftHeel, pose.LeftFootIndex},
	{pose.RightShoulder, pose.RightElbow, pose.RightWrist, pose.RightHip, pose.RightKnee, pose.RightAnkle, pose.RightHeel, pose.RightFootIndex},
}

// joints holds one side's confident landmark positions.
type joints struct {
	shoulder, elbow, wrist, hip, knee, ankle pose.Point3D
	heel, toe                                pose.Point3D
	hasFoot                                  bool
	weight                                   float64 // summed likelihood of the required parts
}

func readSide(f *pose.Frame, s sideLandmarks, need part, minConf float64) (joints, bool) {
	var j joints
	fields := []struct {
		p   part
		t   pose.LandmarkType
		dst *pose.Point3D
	}{
		{partShoulder, s.shoulder, &j.shoulder},
		{partElbow, s.elbow, &j.elbow},
		{partWrist, s.wrist, &j.wrist},
		{partHip, s.hip, &j.hip},
		{partKnee, s.knee, &j.knee},
		{partAnkle, s.ankle, &j.ankle},
	}
	for _, fl := range fields {
		l, ok := f.Confident(fl.t, minConf)
		if fl.p&need == 0 {
			if ok {
				*fl.dst = l.Position
			}
			continue
		}
		if !ok {
			return joints{}, false
		}
		*fl.dst = l.Position
		j.weight += l.Likelihood
	}

	heel, okHeel := f.Confident(s.heel, minConf)
	toe, okToe := f.Confident(s.toe, minConf)
	if okHeel && okToe {
		j.heel, j.toe, j.hasFoot = heel.Position, toe.Position, true
	}
	return j, true
}

// body is the pair of sides read from one frame. primary is the more
// confidently detected side; other is set only when both sides qualify.
type body struct {
	primary joints
	other   *joints
}

func (b body) both() bool { return b.other != nil }

func readBody(f *pose.Frame, need part, minConf float64) (body, bool) {
	if f == nil || !f.PoseDetected {
		return body{}, false
	}
	left, okLeft := readSide(f, bodySides[0], need, minConf)
	right, okRight := readSide(f, bodySides[1], need, minConf)

	switch {
	case okLeft && okRight:
		if right.weight > left.weight {
			return body{primary: right, other: &left}, true
		}
		return body{primary: left, other: &right}, true
	case okLeft:
		return body{primary: left}, true
	case okRight:
		return body{primary: right}, true
	default:
		return body{}, false
	}
}

// torsoLean measures the hip-to-shoulder tilt from vertical, using the
// midpoints when both sides are visible.
func (b body) torsoLean() float64 {
	hip, shoulder := b.primary.hip, b.primary.shoulder
	if b.both() {
		hip = geometry.Midpoint(hip, b.other.hip)
		shoulder = geometry.Midpoint(shoulder, b.other.shoulder)
	}
	return geometry.LeanFromVertical(hip, shoulder)
}

// measure applies fn to the primary side and, when visible, to the other.
// It returns the primary value, the mean of both, and their difference.
func (b body) measure(fn func(joints) float64) (primary, mean, delta float64) {
	primary = fn(b.primary)
	mean = primary
	if b.both() {
		other := fn(*b.other)
		mean = (primary + other) / 2
		delta = geometry.SymmetryDelta(primary, other)
	}
	return primary, mean, delta
}

func elbowAngle(j joints) float64 { return geometry.Angle(j.shoulder, j.elbow, j.wrist) }
func kneeAngle(j joints) float64  { return geometry.Angle(j.hip, j.knee, j.ankle) }

// armAbduction is the angle between the torso and the upper arm.
func armAbduction(j joints) float64 { return geometry.Angle(j.hip, j.shoulder, j.elbow) }

// max returns the larger of fn over the visible sides.
func (b body) max(fn func(joints) float64) float64 {
	v := fn(b.primary)
	if b.both() {
		if o := fn(*b.other); o > v {
			v = o
		}
	}
	return v
}

// min returns the smaller of fn over the visible sides.
func (b body) min(fn func(joints) float64) float64 {
	v := fn(b.primary)
	if b.both() {
		if o := fn(*b.other); o < v {
			v = o
		}
	}
	return v
}
