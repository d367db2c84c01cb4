package worker

import (
	"context"
	"sync"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/cache"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/channel"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/faults"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/groundsense"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/logging"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/parser"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/regolith"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/session"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Registry       *cache.InstanceRegistry
	LogManager     *logging.SlogManager
	ParserService  *parser.Service
	SessionContext *session.Context
	Accumulator    *regolith.Accumulator
	FaultTable     *faults.Table
	TickHandler    *faults.TickHandler
	Detector       *groundsense.Detector
	// ScoopTipLink names the link whose states feed the ground detector.
	ScoopTipLink string
}

// Manager manages event handling and the spawn consumer goroutine
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	spawner *regolith.SpawnAction

	spawnCount cache.SafeCounter

	mu               sync.Mutex
	lastTickDuration time.Duration
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend, spawner *regolith.SpawnAction) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
		spawner: spawner,
	}
}

// StartSpawnConsumer drains spawn requests emitted by the volume accumulator.
// Each request produces at most one spawn attempt; failures are recorded and
// never retried because the accumulator has already reset.
func (m *Manager) StartSpawnConsumer(ctx context.Context, requests channel.Receiver[regolith.SpawnRequest]) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req, ok := <-requests.Receive():
				if !ok {
					return
				}
				if err := m.spawner.Spawn(ctx, req); err != nil {
					m.deps.LogManager.Logger().Error("spawn request failed", "error", err)
				}
			}
		}
	}()
}

// HandleSpawnResult records the outcome of a spawn attempt. Wire this as the
// spawn action's result observer.
func (m *Manager) HandleSpawnResult(r core.RegolithSpawn) {
	if err := m.backend.RecordRegolithSpawn(&r); err != nil {
		m.deps.LogManager.Logger().Error("failed to record spawn", "error", err)
		return
	}
	if r.Spawned {
		m.deps.Registry.Set(r.InstanceName, r.ID)
		m.spawnCount.Inc()
	}
}

// HandleFaultTransition records a completed joint fault transition. Wire this
// as the tick handler's transition observer.
func (m *Manager) HandleFaultTransition(t core.FaultTransition) {
	if err := m.backend.RecordFaultTransition(&t); err != nil {
		m.deps.LogManager.Logger().Error("failed to record fault transition", "error", err)
	}
}

// BehaviorStats snapshots the behavior modules for monitoring.
func (m *Manager) BehaviorStats() core.TickStats {
	m.mu.Lock()
	lastTick := m.lastTickDuration
	m.mu.Unlock()

	return core.TickStats{
		Time:               time.Now(),
		Tick:               m.deps.SessionContext.GetTick(),
		VolumePending:      m.deps.Accumulator.VolumeDisplaced(),
		SpawnCount:         uint(m.spawnCount.Value()),
		ActiveFaults:       uint(m.deps.FaultTable.ActiveCount()),
		SkippedJoints:      m.deps.TickHandler.LastSkipped(),
		LastTickDurationMs: float32(lastTick.Seconds() * 1000),
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
