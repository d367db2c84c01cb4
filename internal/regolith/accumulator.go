// Package regolith converts terrain-deformation events into spawned debris
// that settles in the lander's scoop.
package regolith

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/channel"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// ErrNegativeVolume is returned when a terrain event carries a negative
// displaced-volume delta. The event is rejected and state is left unchanged.
var ErrNegativeVolume = errors.New("negative volume delta in terrain event")

// directionEpsilon guards against a degenerate pushback vector when the
// modification center coincides with the scoop opening.
const directionEpsilon = 1e-9

// SpawnRequest asks the spawn action to create one regolith particle and
// push it along Direction into the scoop. Direction is unit length.
type SpawnRequest struct {
	Direction core.Position3D
	Tick      uint64
	// VolumeDisplaced is the accumulated total that triggered this spawn,
	// recorded before the reset.
	VolumeDisplaced float64
}

// OpeningLocator reports the current position of the scoop opening in the
// site frame. The second return is false while the scoop link is unknown.
type OpeningLocator func() (core.Position3D, bool)

// AccumulatorConfig holds the accumulator's tunables, read once at init.
type AccumulatorConfig struct {
	// SpawnThreshold is the displaced volume (m³) that triggers a spawn.
	SpawnThreshold float64
	// DefaultPushback is used when the computed direction is degenerate.
	DefaultPushback core.Position3D
}

// Accumulator tracks displaced terrain volume and emits at most one spawn
// request per handled event once the total reaches the threshold.
type Accumulator struct {
	mu sync.Mutex

	threshold  float64
	defaultDir mgl64.Vec3

	volumeDisplaced float64
	previousCenter  mgl64.Vec3
	hasCenter       bool

	opening  OpeningLocator
	requests channel.Sender[SpawnRequest]
	logger   *slog.Logger
}

// NewAccumulator creates an accumulator that emits spawn requests on the
// given channel. opening locates the scoop opening for direction inference.
func NewAccumulator(cfg AccumulatorConfig, opening OpeningLocator, requests channel.Sender[SpawnRequest], logger *slog.Logger) *Accumulator {
	return &Accumulator{
		threshold:  cfg.SpawnThreshold,
		defaultDir: vec3(cfg.DefaultPushback),
		opening:    opening,
		requests:   requests,
		logger:     logger,
	}
}

// OnTerrainModified handles one terrain-deformation event. It accumulates
// the volume delta and records the modification center; when the running
// total reaches the threshold it emits exactly one spawn request and resets
// the total to zero. A negative delta is rejected with ErrNegativeVolume and
// leaves all state unchanged.
func (a *Accumulator) OnTerrainModified(ev core.TerrainModified) error {
	if ev.VolumeDelta < 0 {
		a.logger.Error("rejecting malformed terrain event",
			"volumeDelta", ev.VolumeDelta, "operation", ev.Operation)
		return ErrNegativeVolume
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.volumeDisplaced += ev.VolumeDelta
	a.previousCenter = vec3(ev.Center)
	a.hasCenter = true

	if a.volumeDisplaced < a.threshold {
		return nil
	}

	// One spawn per handled event, however far the total overshoots. The
	// total resets in the same critical section so no delta is lost or
	// double-counted around the spawn.
	req := SpawnRequest{
		Direction:       a.pushbackDirection(),
		Tick:            ev.Tick,
		VolumeDisplaced: a.volumeDisplaced,
	}
	a.volumeDisplaced = 0

	a.requests.Send(req)
	a.logger.Debug("regolith spawn requested",
		"volumeDisplaced", req.VolumeDisplaced, "tick", ev.Tick)
	return nil
}

// VolumeDisplaced returns the volume accumulated since the last spawn.
func (a *Accumulator) VolumeDisplaced() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volumeDisplaced
}

// pushbackDirection points from the scoop opening toward the last known
// modification center. Callers must hold a.mu.
func (a *Accumulator) pushbackDirection() core.Position3D {
	if !a.hasCenter {
		return position(a.defaultDir)
	}
	opening, ok := a.opening()
	if !ok {
		return position(a.defaultDir)
	}

	dir := a.previousCenter.Sub(vec3(opening))
	if dir.Len() < directionEpsilon {
		return position(a.defaultDir)
	}
	return position(dir.Normalize())
}

func vec3(p core.Position3D) mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

func position(v mgl64.Vec3) core.Position3D {
	return core.Position3D{X: v.X(), Y: v.Y(), Z: v.Z()}
}
