package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/logging"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/session"
	gormstorage "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/gorm"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB              *gorm.DB
	LogManager      *logging.SlogManager
	SessionContext  *session.Context
	QueueStats      *gormstorage.Backend
	BehaviorStats   func() core.TickStats
	OutputDir       string
	IsDatabaseValid func() bool
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current program status
func (s *Service) GetProgramStatus(
	rawBuffers bool,
	writeQueues bool,
	lastWrite bool,
) (output []string, perfModel model.BehaviorPerformance) {
	sess := s.deps.SessionContext.GetSession()

	// Buffer lengths are tracked via OTEL metrics in the dispatcher
	buffersObj := model.BufferLengths{}

	writeQueuesObj := model.WriteQueueLengths{}
	var lastWriteDuration time.Duration
	if s.deps.QueueStats != nil {
		lengths := s.deps.QueueStats.GetQueueLengths()
		writeQueuesObj = model.WriteQueueLengths{
			TerrainEvents:    uint16(lengths.TerrainEvents),
			RegolithSpawns:   uint16(lengths.RegolithSpawns),
			FaultTransitions: uint16(lengths.FaultTransitions),
			GroundContacts:   uint16(lengths.GroundContacts),
			SessionEvents:    uint16(lengths.SessionEvents),
		}
		lastWriteDuration = s.deps.QueueStats.GetLastDBWriteDuration()
	}

	var stats core.TickStats
	if s.deps.BehaviorStats != nil {
		stats = s.deps.BehaviorStats()
	}

	perf := model.BehaviorPerformance{
		Time:                time.Now(),
		SessionID:           sess.ID,
		Tick:                s.deps.SessionContext.GetTick(),
		BufferLengths:       buffersObj,
		WriteQueueLengths:   writeQueuesObj,
		VolumePending:       stats.VolumePending,
		ActiveFaults:        uint16(stats.ActiveFaults),
		SkippedJoints:       uint16(stats.SkippedJoints),
		LastWriteDurationMs: float32(lastWriteDuration.Milliseconds()),
	}

	if rawBuffers {
		rawBuffersStr, err := json.MarshalIndent(buffersObj, "", "  ")
		if err != nil {
			rawBuffersStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(rawBuffersStr))
	}
	if writeQueues {
		writeQueuesStr, err := json.MarshalIndent(writeQueuesObj, "", "  ")
		if err != nil {
			writeQueuesStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(writeQueuesStr))
	}
	if lastWrite {
		lastWriteStr, err := json.MarshalIndent(perf.LastWriteDurationMs, "", "  ")
		if err != nil {
			lastWriteStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(lastWriteStr))
	}

	return output, perf
}

// ValidateHypertables validates and creates TimescaleDB hypertables
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	logger := s.deps.LogManager.Logger()

	all := []any{}
	s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables`).Scan(&all)
	for _, row := range all {
		logger.Debug("hypertable row", "row", fmt.Sprintf("%v", row))
	}

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			logger.Info("Hypertable already configured", "table", table)
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		err := s.deps.DB.Exec(queryCreateHypertable).Error
		if err != nil {
			logger.Error("Failed to create hypertable", "table", table, "error", err)
			return err
		}
		logger.Info("Created hypertable", "table", table)

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		err = s.deps.DB.Exec(
			queryCompressHypertable,
			strings.Join(tables[table], ","),
		).Error
		if err != nil {
			logger.Error("Failed to enable hypertable compression", "table", table, "error", err)
			return err
		}
		logger.Info("Enabled hypertable compression", "table", table)

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		err = s.deps.DB.Exec(queryCompressAfterHypertable).Error
		if err != nil {
			logger.Error("Failed to set compress_after", "table", table, "error", err)
			return err
		}
		logger.Info("Set compress_after", "table", table)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(s.deps.OutputDir + "/status.txt")
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				sess := s.deps.SessionContext.GetSession()
				if sess.ID == 0 {
					continue
				}

				statusStr, perfModel := s.GetProgramStatus(true, true, true)

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				// write model to Postgres
				if s.deps.IsDatabaseValid() {
					err = s.deps.DB.Create(&perfModel).Error
					if err != nil {
						logger.Error("Error writing perf model to Postgres", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
