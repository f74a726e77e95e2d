package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21
	pixelDiffCut  = 25
	maxStillReuse = 5
)

// MotionGate decides whether a frame changed enough since the previous one
// to be worth sending through the pose detector. A person holding the start
// position produces near-identical frames whose pose is already known.
//
// Frames are compared as blurred grayscale images; the fraction of pixels
// whose intensity moved by more than pixelDiffCut is the change percentage.
type MotionGate struct {
	threshold float64
	prevGray  gocv.Mat
	hasPrev   bool
	stillRun  int
	mu        sync.Mutex
}

// NewMotionGate creates a gate that reports motion once more than
// thresholdPct percent of the pixels change.
func NewMotionGate(thresholdPct float64) *MotionGate {
	return &MotionGate{
		threshold: thresholdPct,
		prevGray:  gocv.NewMat(),
	}
}

// Moved reports whether frame differs from the previous frame and the
// percentage of changed pixels. The first frame always counts as moved, and
// after maxStillReuse still frames in a row one frame is let through so a
// stale pose never lingers.
func (g *MotionGate) Moved(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return true, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !g.hasPrev || blurred.Rows() != g.prevGray.Rows() || blurred.Cols() != g.prevGray.Cols() {
		blurred.CopyTo(&g.prevGray)
		g.hasPrev = true
		g.stillRun = 0
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDiffCut, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&g.prevGray)

	if changed > g.threshold || g.stillRun >= maxStillReuse {
		g.stillRun = 0
		return true, changed
	}
	g.stillRun++
	return false, changed
}

// Reset forgets the reference frame.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hasPrev = false
	g.stillRun = 0
}

// Close releases the reference frame.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prevGray.Close()
	g.prevGray = gocv.NewMat()
	g.hasPrev = false
}
