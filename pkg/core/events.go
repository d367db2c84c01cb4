// pkg/core/events.go
package core

import (
	"encoding/json"
	"time"
)

// TerrainModified is a terrain-deformation notification from the dynamic
// terrain subsystem. VolumeDelta is the displaced volume in cubic meters.
type TerrainModified struct {
	Time       time.Time
	Tick       uint64
	Operation  string // "dig", "dump", or "displace"
	VolumeDelta float64
	Center     Position3D
}

// LinkState is one rigid link's pose as reported by the simulator.
type LinkState struct {
	Time time.Time
	Name string
	Pose Pose
}

// RegolithSpawn records one regolith particle spawn attempt and its pushback.
type RegolithSpawn struct {
	ID             uint
	Time           time.Time
	Tick           uint64
	ModelURI       string
	InstanceName   string
	Position       Position3D
	Direction      Position3D // unit pushback direction
	ForceMagnitude float64
	Spawned        bool
	Pushed         bool
}

// FaultTransition records one joint fault activation or deactivation.
type FaultTransition struct {
	ID        uint
	Time      time.Time
	Tick      uint64
	JointName string
	FaultKey  string
	Activated bool
	// Friction is the value captured on activation, or the value
	// restored on deactivation.
	Friction float64
}

// GroundContact records a detected scoop-tip ground contact.
type GroundContact struct {
	ID       uint
	Time     time.Time
	Position Position3D
}

// SessionEvent is a generic session-scoped event: lifecycle markers and
// custom annotations from the host.
type SessionEvent struct {
	ID        uint
	Time      time.Time
	Tick      uint64
	Name      string // "sessionStart", "sessionEnd", or custom
	Message   string
	ExtraData json.RawMessage
}

// TickStats is a periodic snapshot of the behavior modules.
type TickStats struct {
	Time            time.Time
	Tick            uint64
	VolumePending   float64
	SpawnCount      uint
	ActiveFaults    uint
	SkippedJoints   uint
	LastTickDurationMs float32
}
