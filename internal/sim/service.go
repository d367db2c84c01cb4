// Package sim defines the narrow interface this extension needs from the
// hosting physics simulation: model spawning, scoped force application, and
// joint parameter access. Implementations must return quickly; callers run
// inside the physics tick and never retry automatically.
package sim

import (
	"context"
	"errors"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// ErrJointNotFound is returned when the named joint is not (yet) present in
// the physical model. Callers treat this as transient and retry next tick.
var ErrJointNotFound = errors.New("joint not found in model")

// ErrLinkNotFound is returned when the named link is not present in the model.
var ErrLinkNotFound = errors.New("link not found in model")

// SpawnModelRequest asks the simulation to instantiate a model at a pose.
type SpawnModelRequest struct {
	ModelURI     string    `json:"modelUri"`
	InstanceName string    `json:"instanceName"`
	Pose         core.Pose `json:"pose"`
}

// SpawnModelResponse reports the instance handle assigned by the simulation.
type SpawnModelResponse struct {
	InstanceName string `json:"instanceName"`
}

// ApplyForceRequest asks the simulation to push an instance for a bounded
// duration. The force is a one-shot wrench, not a persistent effect.
type ApplyForceRequest struct {
	InstanceName string          `json:"instanceName"`
	Force        core.Position3D `json:"force"`
	Duration     time.Duration   `json:"-"`
	DurationSec  float64         `json:"durationSec"`
}

// Service is the simulation-facing port used by the behavior modules.
type Service interface {
	// SpawnModel instantiates a model. The returned handle identifies the
	// spawned instance for follow-up requests.
	SpawnModel(ctx context.Context, req SpawnModelRequest) (SpawnModelResponse, error)

	// ApplyForce issues a scoped directional push on a spawned instance.
	ApplyForce(ctx context.Context, req ApplyForceRequest) error

	// LinkPose returns the current pose of a named link in the site frame.
	LinkPose(ctx context.Context, name string) (core.Pose, error)

	// JointFriction reads the friction parameter of a named joint.
	JointFriction(ctx context.Context, joint string) (float64, error)

	// SetJointFriction writes the friction parameter of a named joint.
	SetJointFriction(ctx context.Context, joint string, friction float64) error
}
