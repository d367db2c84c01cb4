package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Memory is an in-process Service used by tests and the dry-run mode. It
// records every request it receives and can be told to fail specific calls.
type Memory struct {
	mu sync.Mutex

	links  map[string]core.Pose
	joints map[string]float64

	Spawned []SpawnModelRequest
	Forces  []ApplyForceRequest

	// FailSpawn and FailForce make the corresponding call return an error.
	FailSpawn bool
	FailForce bool

	spawnSeq int
}

// NewMemory creates an empty in-memory simulation.
func NewMemory() *Memory {
	return &Memory{
		links:  make(map[string]core.Pose),
		joints: make(map[string]float64),
	}
}

// SetLinkPose installs or moves a link.
func (m *Memory) SetLinkPose(name string, pose core.Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[name] = pose
}

// AddJoint installs a joint with an initial friction value.
func (m *Memory) AddJoint(name string, friction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joints[name] = friction
}

// RemoveJoint deletes a joint, simulating a model that is not yet loaded.
func (m *Memory) RemoveJoint(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.joints, name)
}

// SpawnModel records the request and assigns a sequential instance name.
func (m *Memory) SpawnModel(_ context.Context, req SpawnModelRequest) (SpawnModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSpawn {
		return SpawnModelResponse{}, fmt.Errorf("spawn model %s: service rejected request", req.ModelURI)
	}
	m.spawnSeq++
	if req.InstanceName == "" {
		req.InstanceName = fmt.Sprintf("regolith_%d", m.spawnSeq)
	}
	m.Spawned = append(m.Spawned, req)
	return SpawnModelResponse{InstanceName: req.InstanceName}, nil
}

// ApplyForce records the request.
func (m *Memory) ApplyForce(_ context.Context, req ApplyForceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailForce {
		return fmt.Errorf("apply force on %s: service rejected request", req.InstanceName)
	}
	m.Forces = append(m.Forces, req)
	return nil
}

// LinkPose returns the pose of a named link.
func (m *Memory) LinkPose(_ context.Context, name string) (core.Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pose, ok := m.links[name]
	if !ok {
		return core.Pose{}, ErrLinkNotFound
	}
	return pose, nil
}

// JointFriction returns the friction of a named joint.
func (m *Memory) JointFriction(_ context.Context, joint string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	friction, ok := m.joints[joint]
	if !ok {
		return 0, ErrJointNotFound
	}
	return friction, nil
}

// SetJointFriction sets the friction of a named joint.
func (m *Memory) SetJointFriction(_ context.Context, joint string, friction float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.joints[joint]; !ok {
		return ErrJointNotFound
	}
	m.joints[joint] = friction
	return nil
}

var _ Service = (*Memory)(nil)
