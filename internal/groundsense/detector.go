package groundsense

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

const (
	// skipSamplesCount is the number of valid window values discarded
	// before the reference velocity is established.
	skipSamplesCount = 5

	// rollingWindowSize is the velocity moving-average window size.
	rollingWindowSize = 5

	// directionTolerance is the dot-product threshold below which the
	// trending velocity is considered to have diverged from the reference.
	directionTolerance = 0.95

	// minSampleInterval rejects samples arriving too close together for a
	// stable velocity estimate.
	minSampleInterval = 100 * time.Microsecond
)

func meanVec3(samples []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, s := range samples {
		sum = sum.Add(s)
	}
	return sum.Mul(1 / float64(len(samples)))
}

// Detector observes a stream of scoop-tip link states and reports ground
// contact when the tip's velocity direction diverges from its descent
// reference. After a detection, further samples are ignored until Reset.
type Detector struct {
	mu sync.Mutex

	lastPosition *mgl64.Vec3
	lastTime     time.Time

	trending  *SlidingWindow[mgl64.Vec3]
	reference *mgl64.Vec3
	skipped   int

	detected bool
	logger   *slog.Logger
}

// NewDetector creates a detector ready for one descent.
func NewDetector(logger *slog.Logger) *Detector {
	d := &Detector{logger: logger}
	d.resetLocked()
	return d
}

// Reset clears all detector state for another descent.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Detector) resetLocked() {
	d.lastPosition = nil
	d.lastTime = time.Time{}
	d.trending = NewSlidingWindow(rollingWindowSize, meanVec3)
	d.reference = nil
	d.skipped = 0
	d.detected = false
}

// Observe feeds one scoop-tip link state into the detector and returns true
// on the sample that first establishes ground contact.
func (d *Detector) Observe(ls core.LinkState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.detected {
		return false
	}

	position := mgl64.Vec3{ls.Pose.Position.X, ls.Pose.Position.Y, ls.Pose.Position.Z}
	if d.lastPosition == nil {
		d.lastPosition = &position
		d.lastTime = ls.Time
		return false
	}

	dt := ls.Time.Sub(d.lastTime)
	if dt < minSampleInterval {
		return false
	}

	velocity := position.Sub(*d.lastPosition).Mul(1 / dt.Seconds())
	d.lastPosition = &position
	d.lastTime = ls.Time
	d.trending.Append(velocity)

	if d.reference == nil {
		if !d.trending.Valid() {
			return false
		}
		d.skipped++
		if d.skipped <= skipSamplesCount {
			return false
		}
		ref := d.trending.Value()
		d.reference = &ref
		return false
	}

	ref := d.reference.Normalize()
	trend := d.trending.Value().Normalize()
	if ref.Dot(trend) < directionTolerance {
		d.detected = true
		d.logger.Info("ground contact detected",
			"position", ls.Pose.Position, "link", ls.Name)
		return true
	}
	return false
}

// Detected reports whether ground contact has been established since the
// last reset.
func (d *Detector) Detected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detected
}

// GroundPosition returns the tip position at the most recent sample. Only
// meaningful right after a detection.
func (d *Detector) GroundPosition() (core.Position3D, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastPosition == nil {
		return core.Position3D{}, false
	}
	p := *d.lastPosition
	return core.Position3D{X: p.X(), Y: p.Y(), Z: p.Z()}, true
}
