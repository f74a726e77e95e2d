package pose

import "time"

// WirePoint is the JSON shape of one landmark as emitted by the MediaPipe
// service and stored in recordings.
type WirePoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// WireFrame is the JSON shape of one detector response. Landmarks are indexed
// by LandmarkType; a missing pose has no landmarks.
type WireFrame struct {
	PoseDetected bool        `json:"pose_detected"`
	TimestampMs  int64       `json:"timestamp_ms,omitempty"`
	Landmarks    []WirePoint `json:"landmarks,omitempty"`
}

// Frame converts the wire representation. fallback is used when the wire
// frame carries no timestamp.
func (w WireFrame) Frame(fallback time.Time) *Frame {
	ts := fallback
	if w.TimestampMs > 0 {
		ts = time.UnixMilli(w.TimestampMs)
	}

	if !w.PoseDetected || len(w.Landmarks) == 0 {
		return EmptyFrame(ts)
	}

	f := &Frame{
		Landmarks:    make(map[LandmarkType]Landmark, NumLandmarks),
		PoseDetected: true,
		Timestamp:    ts,
	}
	for i := 0; i < NumLandmarks && i < len(w.Landmarks); i++ {
		p := w.Landmarks[i]
		f.Landmarks[LandmarkType(i)] = Landmark{
			Type:       LandmarkType(i),
			Position:   Point3D{X: p.X, Y: p.Y, Z: p.Z},
			Likelihood: p.Visibility,
		}
	}
	return f
}

// ToWire converts a frame to its wire representation. Landmarks the frame
// lacks are written with zero visibility so indices stay aligned.
func ToWire(f *Frame) WireFrame {
	w := WireFrame{
		PoseDetected: f.PoseDetected,
		TimestampMs:  f.Timestamp.UnixMilli(),
	}
	if !f.PoseDetected {
		return w
	}

	w.Landmarks = make([]WirePoint, NumLandmarks)
	for t, l := range f.Landmarks {
		if t < 0 || t >= NumLandmarks {
			continue
		}
		w.Landmarks[t] = WirePoint{
			X:          l.Position.X,
			Y:          l.Position.Y,
			Z:          l.Position.Z,
			Visibility: l.Likelihood,
		}
	}
	return w
}
