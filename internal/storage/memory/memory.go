// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/config"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	log     *slog.Logger
	session *core.Session
	site    *core.Site

	terrainEvents    []core.TerrainModified
	regolithSpawns   []core.RegolithSpawn
	faultTransitions []core.FaultTransition
	groundContacts   []core.GroundContact
	sessionEvents    []core.SessionEvent
	tickStats        []core.TickStats

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	return &Backend{
		cfg: cfg,
		log: logger,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(session *core.Session, site *core.Site) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.site = site

	// Reset all collections
	b.terrainEvents = nil
	b.regolithSpawns = nil
	b.faultTransitions = nil
	b.groundContacts = nil
	b.sessionEvents = nil
	b.tickStats = nil
	b.idCounter = 0
	b.lastExportPath = ""

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session to end")
	}
	return b.exportJSON()
}

// RecordTerrainEvent records a terrain deformation
func (b *Backend) RecordTerrainEvent(e *core.TerrainModified) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.terrainEvents = append(b.terrainEvents, *e)
	return nil
}

// RecordRegolithSpawn records a spawn attempt (assigns ID to the passed pointer)
func (b *Backend) RecordRegolithSpawn(s *core.RegolithSpawn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.idCounter++
	s.ID = b.idCounter
	b.regolithSpawns = append(b.regolithSpawns, *s)
	return nil
}

// RecordFaultTransition records a joint fault transition
func (b *Backend) RecordFaultTransition(t *core.FaultTransition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.idCounter++
	t.ID = b.idCounter
	b.faultTransitions = append(b.faultTransitions, *t)
	return nil
}

// RecordGroundContact records a scoop-tip ground contact
func (b *Backend) RecordGroundContact(g *core.GroundContact) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.idCounter++
	g.ID = b.idCounter
	b.groundContacts = append(b.groundContacts, *g)
	return nil
}

// RecordSessionEvent records a session lifecycle or custom event
func (b *Backend) RecordSessionEvent(e *core.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionEvents = append(b.sessionEvents, *e)
	return nil
}

// RecordTickStats records a performance snapshot
func (b *Backend) RecordTickStats(t *core.TickStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickStats = append(b.tickStats, *t)
	return nil
}

// SpawnCount returns the number of recorded spawn attempts
func (b *Backend) SpawnCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.regolithSpawns)
}
