// Package gormstorage implements the storage.Backend interface using
// GORM/PostgreSQL with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model/convert"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/queue"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	TerrainEvents    *queue.Queue[model.TerrainEvent]
	RegolithSpawns   *queue.Queue[model.RegolithSpawn]
	FaultTransitions *queue.Queue[model.FaultTransition]
	GroundContacts   *queue.Queue[model.GroundContact]
	SessionEvents    *queue.Queue[model.SessionEvent]
	Performances     *queue.Queue[model.BehaviorPerformance]
}

func newQueues() *queues {
	return &queues{
		TerrainEvents:    queue.New[model.TerrainEvent](),
		RegolithSpawns:   queue.New[model.RegolithSpawn](),
		FaultTransitions: queue.New[model.FaultTransition](),
		GroundContacts:   queue.New[model.GroundContact](),
		SessionEvents:    queue.New[model.SessionEvent](),
		Performances:     queue.New[model.BehaviorPerformance](),
	}
}

// QueueLengths is a snapshot of the pending write queue sizes.
type QueueLengths struct {
	TerrainEvents    int
	RegolithSpawns   int
	FaultTransitions int
	GroundContacts   int
	SessionEvents    int
	Performances     int
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	dbReady   bool

	mu                  sync.Mutex
	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. With no DB injected the backend runs queue-only, which
// the unit tests rely on.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriter()
	return nil
}

// setupDB migrates tables and creates default instance settings if they don't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.Logger

	if !db.Migrator().HasTable(&model.ExtensionInfo{}) {
		if err := db.AutoMigrate(&model.ExtensionInfo{}); err != nil {
			log.Error("Failed to create extension_info table", "error", err)
			return fmt.Errorf("failed to auto-migrate ExtensionInfo: %w", err)
		}
		if err := db.Create(&model.ExtensionInfo{
			InstanceName: "ow_behaviors",
			Description:  "Ocean-world lander behavior recorder",
		}).Error; err != nil {
			return fmt.Errorf("failed to create extension_info entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.Info("PostGIS extension created")
	}

	log.Info("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database setup complete")
	return nil
}

// Close stops the DB writer goroutine after a final drain.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	if b.dbReady {
		b.drainQueues()
	}
	return nil
}

// StartSession performs site get-or-insert and session create in the DB.
func (b *Backend) StartSession(coreSession *core.Session, coreSite *core.Site) error {
	if b.deps.DB == nil {
		return nil
	}

	db := b.deps.DB

	gormSession := convert.CoreToSession(*coreSession)
	gormSite := convert.CoreToSite(*coreSite)

	// Site get-or-insert
	if _, err := gormSite.GetOrInsert(db); err != nil {
		return fmt.Errorf("failed to get or insert site: %w", err)
	}

	// Session create
	gormSession.SiteID = gormSite.ID
	gormSession.Site = gormSite
	if err := db.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	// Assign DB-generated IDs back to core types
	coreSession.ID = gormSession.ID
	coreSession.SiteID = gormSite.ID
	coreSite.ID = gormSite.ID

	// Store session ID for the DB writer goroutine
	b.sessionID.Store(uint64(gormSession.ID))

	return nil
}

// SetSessionID sets the current session ID for the DB writer (used by CLI tools).
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// EndSession drains the queues and stamps the session end time.
func (b *Backend) EndSession() error {
	if b.deps.DB == nil {
		return nil
	}
	b.drainQueues()

	sessionID := uint(b.sessionID.Load())
	if sessionID == 0 {
		return nil
	}
	return b.deps.DB.Model(&model.Session{}).
		Where("id = ?", sessionID).
		Update("end_time", time.Now()).Error
}

// RecordTerrainEvent converts and queues a terrain event.
func (b *Backend) RecordTerrainEvent(e *core.TerrainModified) error {
	b.queues.TerrainEvents.Push(convert.CoreToTerrainEvent(*e))
	return nil
}

// RecordRegolithSpawn converts and queues a spawn record.
func (b *Backend) RecordRegolithSpawn(s *core.RegolithSpawn) error {
	b.queues.RegolithSpawns.Push(convert.CoreToRegolithSpawn(*s))
	return nil
}

// RecordFaultTransition converts and queues a fault transition.
func (b *Backend) RecordFaultTransition(t *core.FaultTransition) error {
	b.queues.FaultTransitions.Push(convert.CoreToFaultTransition(*t))
	return nil
}

// RecordGroundContact converts and queues a ground contact.
func (b *Backend) RecordGroundContact(g *core.GroundContact) error {
	b.queues.GroundContacts.Push(convert.CoreToGroundContact(*g))
	return nil
}

// RecordSessionEvent converts and queues a session event.
func (b *Backend) RecordSessionEvent(e *core.SessionEvent) error {
	b.queues.SessionEvents.Push(convert.CoreToSessionEvent(*e))
	return nil
}

// RecordTickStats converts and queues a performance snapshot.
func (b *Backend) RecordTickStats(t *core.TickStats) error {
	b.queues.Performances.Push(convert.CoreToBehaviorPerformance(*t))
	return nil
}

// DB exposes the underlying GORM handle for monitoring and maintenance.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// GetQueueLengths returns the pending write queue sizes for monitoring.
func (b *Backend) GetQueueLengths() QueueLengths {
	if b.queues == nil {
		return QueueLengths{}
	}
	return QueueLengths{
		TerrainEvents:    b.queues.TerrainEvents.Len(),
		RegolithSpawns:   b.queues.RegolithSpawns.Len(),
		FaultTransitions: b.queues.FaultTransitions.Len(),
		GroundContacts:   b.queues.GroundContacts.Len(),
		SessionEvents:    b.queues.SessionEvents.Len(),
		Performances:     b.queues.Performances.Len(),
	}
}

// GetLastDBWriteDuration returns the duration of the most recent write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDBWriteDuration
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error writing batch", "queue", name, "error", err)
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// drainQueues runs one write cycle over all queues.
func (b *Backend) drainQueues() {
	log := b.deps.Logger
	sessionID := uint(b.sessionID.Load())

	start := time.Now()

	writeQueue(b.deps.DB, b.queues.TerrainEvents, "terrain events", log, func(items []model.TerrainEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.RegolithSpawns, "regolith spawns", log, func(items []model.RegolithSpawn) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.FaultTransitions, "fault transitions", log, func(items []model.FaultTransition) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.GroundContacts, "ground contacts", log, func(items []model.GroundContact) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.SessionEvents, "session events", log, func(items []model.SessionEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.Performances, "behavior performances", log, func(items []model.BehaviorPerformance) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})

	b.mu.Lock()
	b.lastDBWriteDuration = time.Since(start)
	b.mu.Unlock()
}

// startDBWriter starts the background goroutine that periodically drains
// queues into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			b.drainQueues()
			time.Sleep(2 * time.Second)
		}
	}()
}
