package pose

import (
	"math"
	"time"
)

// SyntheticLikelihood is the visibility assigned to every synthetic landmark.
const SyntheticLikelihood = 0.98

// skeleton is a partial set of positions used to build synthetic frames.
type skeleton map[LandmarkType]Point3D

// frame fills the landmarks a builder did not place (face, hands, feet)
// relative to the ones it did, and returns a fully detected frame.
func (s skeleton) frame() *Frame {
	nose := s[Nose]
	face := map[LandmarkType]Point3D{
		LeftEyeInner:  {X: nose.X + 0.01, Y: nose.Y - 0.02},
		LeftEye:       {X: nose.X + 0.02, Y: nose.Y - 0.02},
		LeftEyeOuter:  {X: nose.X + 0.03, Y: nose.Y - 0.02},
		RightEyeInner: {X: nose.X - 0.01, Y: nose.Y - 0.02},
		RightEye:      {X: nose.X - 0.02, Y: nose.Y - 0.02},
		RightEyeOuter: {X: nose.X - 0.03, Y: nose.Y - 0.02},
		LeftEar:       {X: nose.X + 0.05, Y: nose.Y - 0.01},
		RightEar:      {X: nose.X - 0.05, Y: nose.Y - 0.01},
		MouthLeft:     {X: nose.X + 0.015, Y: nose.Y + 0.02},
		MouthRight:    {X: nose.X - 0.015, Y: nose.Y + 0.02},
	}
	for t, p := range face {
		if _, ok := s[t]; !ok {
			s[t] = p
		}
	}

	hands := []struct{ wrist, pinky, index, thumb LandmarkType }{
		{LeftWrist, LeftPinky, LeftIndex, LeftThumb},
		{RightWrist, RightPinky, RightIndex, RightThumb},
	}
	for _, h := range hands {
		w := s[h.wrist]
		s.setDefault(h.pinky, Point3D{X: w.X - 0.01, Y: w.Y + 0.02, Z: w.Z})
		s.setDefault(h.index, Point3D{X: w.X + 0.01, Y: w.Y + 0.03, Z: w.Z})
		s.setDefault(h.thumb, Point3D{X: w.X + 0.015, Y: w.Y + 0.01, Z: w.Z})
	}

	feet := []struct{ ankle, heel, toe LandmarkType }{
		{LeftAnkle, LeftHeel, LeftFootIndex},
		{RightAnkle, RightHeel, RightFootIndex},
	}
	for _, f := range feet {
		a := s[f.ankle]
		s.setDefault(f.heel, Point3D{X: a.X - 0.02, Y: a.Y + 0.02, Z: a.Z})
		s.setDefault(f.toe, Point3D{X: a.X + 0.06, Y: a.Y + 0.02, Z: a.Z})
	}

	landmarks := make([]Landmark, 0, NumLandmarks)
	for t := LandmarkType(0); t < NumLandmarks; t++ {
		landmarks = append(landmarks, Landmark{
			Type:       t,
			Position:   s[t],
			Likelihood: SyntheticLikelihood,
		})
	}
	return NewFrame(time.Time{}, landmarks...)
}

func (s skeleton) setDefault(t LandmarkType, p Point3D) {
	if _, ok := s[t]; !ok {
		s[t] = p
	}
}

// both places the same position on the left and right landmark.
func (s skeleton) both(left, right LandmarkType, p Point3D) {
	s[left] = p
	s[right] = p
}

func add(p Point3D, scale float64, v Point3D) Point3D {
	return Point3D{X: p.X + scale*v.X, Y: p.Y + scale*v.Y, Z: p.Z + scale*v.Z}
}

// rotate turns v by deg degrees in image coordinates (y grows downward).
func rotate(v Point3D, deg float64) Point3D {
	r := deg * math.Pi / 180
	return Point3D{
		X: v.X*math.Cos(r) - v.Y*math.Sin(r),
		Y: v.X*math.Sin(r) + v.Y*math.Cos(r),
	}
}

func unit(v Point3D) Point3D {
	n := math.Hypot(v.X, v.Y)
	return Point3D{X: v.X / n, Y: v.Y / n}
}

func direction(deg float64) Point3D {
	r := deg * math.Pi / 180
	return Point3D{X: math.Sin(r), Y: -math.Cos(r)}
}

// SquatPose returns a side-view squat (facing +x) with the given knee angle
// and forward torso lean from vertical, both in degrees.
func SquatPose(kneeAngle, torsoLean float64) *Frame {
	ankle := Point3D{X: 0.5, Y: 0.85}
	knee := Point3D{X: 0.52, Y: 0.65}
	shin := unit(Point3D{X: ankle.X - knee.X, Y: ankle.Y - knee.Y})
	hip := add(knee, 0.2, rotate(shin, kneeAngle))
	shoulder := add(hip, 0.25, direction(torsoLean))
	elbow := Point3D{X: shoulder.X + 0.08, Y: shoulder.Y + 0.1}
	wrist := Point3D{X: elbow.X + 0.1, Y: elbow.Y}

	s := skeleton{Nose: {X: shoulder.X + 0.04, Y: shoulder.Y - 0.12}}
	s.both(LeftAnkle, RightAnkle, ankle)
	s.both(LeftKnee, RightKnee, knee)
	s.both(LeftHip, RightHip, hip)
	s.both(LeftShoulder, RightShoulder, shoulder)
	s.both(LeftElbow, RightElbow, elbow)
	s.both(LeftWrist, RightWrist, wrist)
	return s.frame()
}

// PushUpPose returns a side-view push-up (head toward +x) with the given
// elbow angle. hipOffset moves the hip off the shoulder-ankle line; positive
// values sag toward the floor, negative values pike.
func PushUpPose(elbowAngle, hipOffset float64) *Frame {
	wrist := Point3D{X: 0.7, Y: 0.8}
	elbow := Point3D{X: 0.7, Y: 0.65}
	forearm := unit(Point3D{X: wrist.X - elbow.X, Y: wrist.Y - elbow.Y})
	shoulder := add(elbow, 0.15, rotate(forearm, elbowAngle))
	ankle := Point3D{X: shoulder.X - 0.5, Y: 0.8}
	hip := Point3D{
		X: (shoulder.X + ankle.X) / 2,
		Y: (shoulder.Y+ankle.Y)/2 + hipOffset,
	}
	knee := Point3D{X: (hip.X + ankle.X) / 2, Y: (hip.Y + ankle.Y) / 2}

	s := skeleton{Nose: {X: shoulder.X + 0.08, Y: shoulder.Y + 0.02}}
	s.both(LeftWrist, RightWrist, wrist)
	s.both(LeftElbow, RightElbow, elbow)
	s.both(LeftShoulder, RightShoulder, shoulder)
	s.both(LeftHip, RightHip, hip)
	s.both(LeftKnee, RightKnee, knee)
	s.both(LeftAnkle, RightAnkle, ankle)
	return s.frame()
}

// ArmCurlPose returns a side-view standing curl with the given elbow angle.
// elbowDrift swings the upper arm forward of the torso, in degrees.
func ArmCurlPose(elbowAngle, elbowDrift float64) *Frame {
	shoulder := Point3D{X: 0.5, Y: 0.3}
	hip := Point3D{X: 0.5, Y: 0.55}
	r := elbowDrift * math.Pi / 180
	elbow := add(shoulder, 0.15, Point3D{X: math.Sin(r), Y: math.Cos(r)})
	upper := unit(Point3D{X: shoulder.X - elbow.X, Y: shoulder.Y - elbow.Y})
	wrist := add(elbow, 0.14, rotate(upper, elbowAngle))

	s := skeleton{Nose: {X: shoulder.X + 0.03, Y: shoulder.Y - 0.12}}
	s.both(LeftShoulder, RightShoulder, shoulder)
	s.both(LeftElbow, RightElbow, elbow)
	s.both(LeftWrist, RightWrist, wrist)
	s.both(LeftHip, RightHip, hip)
	s.both(LeftKnee, RightKnee, Point3D{X: 0.5, Y: 0.72})
	s.both(LeftAnkle, RightAnkle, Point3D{X: 0.5, Y: 0.9})
	return s.frame()
}

// SideRaisePose returns a front-view lateral raise with both straight arms
// lifted abduction degrees away from the torso.
func SideRaisePose(abduction float64) *Frame {
	r := abduction * math.Pi / 180
	s := skeleton{Nose: {X: 0.5, Y: 0.18}}

	for _, side := range []struct {
		shoulder, elbow, wrist, hip, knee, ankle LandmarkType
		x, sign                                  float64
	}{
		{LeftShoulder, LeftElbow, LeftWrist, LeftHip, LeftKnee, LeftAnkle, 0.58, 1},
		{RightShoulder, RightElbow, RightWrist, RightHip, RightKnee, RightAnkle, 0.42, -1},
	} {
		dir := Point3D{X: side.sign * math.Sin(r), Y: math.Cos(r)}
		shoulder := Point3D{X: side.x, Y: 0.3}
		elbow := add(shoulder, 0.15, dir)
		s[side.shoulder] = shoulder
		s[side.elbow] = elbow
		s[side.wrist] = add(elbow, 0.14, dir)
		s[side.hip] = Point3D{X: side.x, Y: 0.55}
		s[side.knee] = Point3D{X: side.x, Y: 0.75}
		s[side.ankle] = Point3D{X: side.x, Y: 0.92}
	}
	return s.frame()
}

// ShoulderPressPose returns a front-view overhead press with the given elbow
// angle on both arms. Forearms stay vertical over the elbows.
func ShoulderPressPose(elbowAngle float64) *Frame {
	r := (elbowAngle - 90) * math.Pi / 180
	s := skeleton{Nose: {X: 0.5, Y: 0.18}}

	for _, side := range []struct {
		shoulder, elbow, wrist, hip, knee, ankle LandmarkType
		x, sign                                  float64
	}{
		{LeftShoulder, LeftElbow, LeftWrist, LeftHip, LeftKnee, LeftAnkle, 0.58, 1},
		{RightShoulder, RightElbow, RightWrist, RightHip, RightKnee, RightAnkle, 0.42, -1},
	} {
		shoulder := Point3D{X: side.x, Y: 0.3}
		elbow := add(shoulder, 0.15, Point3D{X: side.sign * math.Cos(r), Y: -math.Sin(r)})
		s[side.shoulder] = shoulder
		s[side.elbow] = elbow
		s[side.wrist] = Point3D{X: elbow.X, Y: elbow.Y - 0.14}
		s[side.hip] = Point3D{X: side.x, Y: 0.6}
		s[side.knee] = Point3D{X: side.x, Y: 0.78}
		s[side.ankle] = Point3D{X: side.x, Y: 0.94}
	}
	return s.frame()
}

// RepAngles returns an angle sequence that moves from start to turn and back
// in steps equal increments each way, endpoints included.
func RepAngles(start, turn float64, steps int) []float64 {
	if steps < 1 {
		steps = 1
	}
	angles := make([]float64, 0, 2*steps+1)
	for i := 0; i <= steps; i++ {
		angles = append(angles, start+(turn-start)*float64(i)/float64(steps))
	}
	for i := steps - 1; i >= 0; i-- {
		angles = append(angles, start+(turn-start)*float64(i)/float64(steps))
	}
	return angles
}
