package regolith

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/sim"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// SpawnConfig holds the spawn action's tunables, read once at init.
type SpawnConfig struct {
	// ModelURI identifies the regolith particle model to instantiate.
	ModelURI string
	// ScoopLink is the link whose frame anchors the spawn pose.
	ScoopLink string
	// SpawnOffset displaces the spawn pose from the scoop frame so the
	// particle materializes inside the scoop rather than intersecting it.
	SpawnOffset core.Position3D
	// ForceMagnitude scales the pushback force (N).
	ForceMagnitude float64
	// ForceDuration bounds the pushback; the force is one-shot, not
	// continuous.
	ForceDuration time.Duration
}

// ResultFunc observes the outcome of each spawn attempt, e.g. for recording.
type ResultFunc func(core.RegolithSpawn)

// SpawnAction instantiates regolith in the scoop and applies the pushback
// force. Spawn and force are two independently failing requests: a failed
// spawn skips the force; a failed force leaves the spawned particle in place.
type SpawnAction struct {
	svc      sim.Service
	cfg      SpawnConfig
	logger   *slog.Logger
	onResult ResultFunc
}

// NewSpawnAction creates a spawn action backed by the given simulation
// service. onResult may be nil.
func NewSpawnAction(svc sim.Service, cfg SpawnConfig, logger *slog.Logger, onResult ResultFunc) *SpawnAction {
	return &SpawnAction{
		svc:      svc,
		cfg:      cfg,
		logger:   logger,
		onResult: onResult,
	}
}

// Spawn executes one spawn request. Failures are reported to the caller and
// the result observer but are never fatal; the accumulator has already reset,
// so a failed spawn is accepted as lost volume.
func (s *SpawnAction) Spawn(ctx context.Context, req SpawnRequest) error {
	record := core.RegolithSpawn{
		Time:           time.Now(),
		Tick:           req.Tick,
		ModelURI:       s.cfg.ModelURI,
		Direction:      req.Direction,
		ForceMagnitude: s.cfg.ForceMagnitude,
	}
	defer func() {
		if s.onResult != nil {
			s.onResult(record)
		}
	}()

	pose, err := s.svc.LinkPose(ctx, s.cfg.ScoopLink)
	if err != nil {
		s.logger.Error("scoop pose unavailable, skipping spawn",
			"link", s.cfg.ScoopLink, "error", err)
		return fmt.Errorf("resolving scoop pose: %w", err)
	}
	pose.Position = pose.Position.Add(s.cfg.SpawnOffset)
	record.Position = pose.Position

	resp, err := s.svc.SpawnModel(ctx, sim.SpawnModelRequest{
		ModelURI: s.cfg.ModelURI,
		Pose:     pose,
	})
	if err != nil {
		s.logger.Error("regolith spawn failed", "model", s.cfg.ModelURI, "error", err)
		return fmt.Errorf("spawning regolith: %w", err)
	}
	record.Spawned = true
	record.InstanceName = resp.InstanceName

	force := mgl64.Vec3{req.Direction.X, req.Direction.Y, req.Direction.Z}.
		Mul(s.cfg.ForceMagnitude)
	err = s.svc.ApplyForce(ctx, sim.ApplyForceRequest{
		InstanceName: resp.InstanceName,
		Force:        core.Position3D{X: force.X(), Y: force.Y(), Z: force.Z()},
		Duration:     s.cfg.ForceDuration,
	})
	if err != nil {
		// The particle persists without its pushback. Best effort, not
		// transactional.
		s.logger.Error("pushback force failed, particle left untouched",
			"instance", resp.InstanceName, "error", err)
		return fmt.Errorf("applying pushback: %w", err)
	}
	record.Pushed = true

	s.logger.Info("regolith spawned",
		"instance", resp.InstanceName, "volumeDisplaced", req.VolumeDisplaced)
	return nil
}
