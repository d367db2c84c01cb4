package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// DefaultBucketNames are the default InfluxDB buckets used by the recorder.
var DefaultBucketNames = []string{
	"terrain_data",
	"behavior_performance",
	"fault_injection",
	"sim_performance",
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influxdb.Enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		// create backup writer
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// get influxOrg
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)

		m.Logger.Trace().Str("bucket", bucket).Msg("InfluxDB writer created")
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return fmt.Errorf("influxDB client not initialized and backup writer not available")
		}

		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
		_, err := m.BackupWriter.Write([]byte(lineProtocol + "\n"))
		if err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
		}
	}

	return nil
}

// Close flushes all writers and releases the client and backup file.
func (m *Manager) Close() {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		if err := m.BackupWriter.Close(); err != nil {
			m.Logger.Error().Err(err).Msg("Error closing InfluxDB backup writer")
		}
	}
}

// TerrainEventPoint builds a terrain_data point from a terrain notification.
func TerrainEventPoint(sessionName string, e core.TerrainModified) (bucket string, point *influxdb2_write.Point) {
	point = influxdb2_write.NewPointWithMeasurement("terrain_modified").
		AddTag("session", sessionName).
		AddTag("operation", e.Operation).
		AddField("volume_delta", e.VolumeDelta).
		AddField("center_x", e.Center.X).
		AddField("center_y", e.Center.Y).
		AddField("center_z", e.Center.Z).
		AddField("tick", int64(e.Tick)).
		SetTime(e.Time)
	return "terrain_data", point
}

// SpawnPoint builds a terrain_data point from a regolith spawn record.
func SpawnPoint(sessionName string, s core.RegolithSpawn) (bucket string, point *influxdb2_write.Point) {
	point = influxdb2_write.NewPointWithMeasurement("regolith_spawn").
		AddTag("session", sessionName).
		AddTag("instance", s.InstanceName).
		AddField("force_magnitude", s.ForceMagnitude).
		AddField("spawned", s.Spawned).
		AddField("pushed", s.Pushed).
		AddField("tick", int64(s.Tick)).
		SetTime(s.Time)
	return "terrain_data", point
}

// FaultTransitionPoint builds a fault_injection point from a fault transition.
func FaultTransitionPoint(sessionName string, t core.FaultTransition) (bucket string, point *influxdb2_write.Point) {
	point = influxdb2_write.NewPointWithMeasurement("fault_transition").
		AddTag("session", sessionName).
		AddTag("joint", t.JointName).
		AddField("activated", t.Activated).
		AddField("friction", t.Friction).
		AddField("tick", int64(t.Tick)).
		SetTime(t.Time)
	return "fault_injection", point
}

// TickStatsPoint builds a behavior_performance point from a tick snapshot.
func TickStatsPoint(sessionName string, t core.TickStats) (bucket string, point *influxdb2_write.Point) {
	point = influxdb2_write.NewPointWithMeasurement("behavior_tick").
		AddTag("session", sessionName).
		AddField("volume_pending", t.VolumePending).
		AddField("spawn_count", int64(t.SpawnCount)).
		AddField("active_faults", int64(t.ActiveFaults)).
		AddField("skipped_joints", int64(t.SkippedJoints)).
		AddField("tick_duration_ms", float64(t.LastTickDurationMs)).
		AddField("tick", int64(t.Tick)).
		SetTime(t.Time)
	return "behavior_performance", point
}
