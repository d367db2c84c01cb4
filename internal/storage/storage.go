// internal/storage/storage.go
package storage

import "github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session, site *core.Site) error
	EndSession() error

	// Event recording
	RecordTerrainEvent(e *core.TerrainModified) error
	RecordRegolithSpawn(s *core.RegolithSpawn) error
	RecordFaultTransition(t *core.FaultTransition) error
	RecordGroundContact(g *core.GroundContact) error
	RecordSessionEvent(e *core.SessionEvent) error
	RecordTickStats(t *core.TickStats) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the review web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
