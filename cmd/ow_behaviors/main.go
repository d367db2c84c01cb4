package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/api"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/bridge"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/cache"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/channel"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/config"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/dispatcher"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/faults"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/geo"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/groundsense"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/influx"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/logging"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/monitor"
	intOtel "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/otel"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/params"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/parser"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/regolith"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/session"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/sim"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage"
	gormstorage "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/gorm"
	sqlitestorage "github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/sqlite"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/worker"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Version info - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "1.0.0"
	BuildDate               string = "unknown"

	ExtensionName string = "ow_behaviors"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "export":
			if err := runExport(args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
				os.Exit(1)
			}
			return
		case "reduce":
			if err := runReduce(args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "reduce failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	startTime := time.Now()

	slogMgr := logging.NewSlogManager()
	if err := slogMgr.Setup(viper.GetString("logLevel"), logging.Options{}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := slogMgr.Logger()

	configDir := "."
	if v := os.Getenv("OW_BEHAVIORS_CONFIG_DIR"); v != "" {
		configDir = v
	}
	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		_ = os.MkdirAll(logsDir, 0755)
	}

	logFilePath := logging.LogFilePath(logsDir, ExtensionName, startTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	}

	// OTel provider, optional
	var otelProvider *intOtel.Provider
	var otelLogProvider *sdklog.LoggerProvider
	if viper.GetBool("otel.enabled") {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  ExtensionName,
			BatchTimeout: 5 * time.Second,
			LogWriter:    logFile,
			Endpoint:     viper.GetString("otel.endpoint"),
			Insecure:     viper.GetBool("otel.insecure"),
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			otelLogProvider = otelProvider.LoggerProvider()
		}
	}

	// Re-setup logging with the file, optional Graylog, and optional OTel
	graylogAddr := ""
	if viper.GetBool("graylog.enabled") {
		graylogAddr = viper.GetString("graylog.address")
	}
	if err := slogMgr.Setup(viper.GetString("logLevel"), logging.Options{
		File:           logFile,
		GraylogAddress: graylogAddr,
		Provider:       otelLogProvider,
	}); err != nil {
		return fmt.Errorf("failed to reinitialize logging: %w", err)
	}
	logger = slogMgr.Logger()
	logger.Info("Logging to file", "path", logFilePath,
		"version", CurrentExtensionVersion, "buildDate", BuildDate)

	zlog := zerolog.New(logFile).With().Timestamp().Logger()

	// InfluxDB metrics, optional
	var influxMgr *influx.Manager
	if viper.GetBool("influx.enabled") {
		influxMgr = influx.NewManager(zlog, filepath.Join(logsDir, "influx_backup.gz"))
		if err := influxMgr.Connect(); err != nil {
			logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
			influxMgr = nil
		}
	}

	// Storage backend
	backend, err := storage.NewBackend(config.Storage(), logger)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	// Simulation host API
	simClient := sim.NewClient(
		viper.GetString("sim.serverUrl"),
		viper.GetString("sim.apiKey"),
		time.Duration(viper.GetInt("sim.timeoutMs"))*time.Millisecond,
	)

	// Behavior modules, logging with live session context
	sessionContext := session.NewContext()
	behaviorLogger := slogMgr.WithContext(func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", sessionContext.GetSession().SessionName),
			slog.Uint64("tick", sessionContext.GetTick()),
		}
	})
	parserService := parser.NewService(behaviorLogger)
	detector := groundsense.NewDetector(behaviorLogger)
	registry := cache.NewInstanceRegistry()
	faultTable := faults.NewTable(config.Joints())

	spawnOffset, err := geo.Position3DFromString(viper.GetString("regolith.spawnOffset"))
	if err != nil {
		logger.Warn("Invalid regolith.spawnOffset, using zero", "error", err)
	}
	defaultPushback, err := geo.Position3DFromString(viper.GetString("regolith.defaultPushback"))
	if err != nil {
		logger.Warn("Invalid regolith.defaultPushback, using -x", "error", err)
		defaultPushback = core.Position3D{X: -1}
	}

	scoopLink := viper.GetString("regolith.scoopLink")
	opening := func() (core.Position3D, bool) {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(viper.GetInt("sim.timeoutMs"))*time.Millisecond)
		defer cancel()
		pose, err := simClient.LinkPose(ctx, scoopLink)
		if err != nil {
			return core.Position3D{}, false
		}
		return pose.Position.Add(spawnOffset), true
	}

	spawnRequests := channel.New[regolith.SpawnRequest](64)
	accumulator := regolith.NewAccumulator(regolith.AccumulatorConfig{
		SpawnThreshold:  viper.GetFloat64("regolith.spawnThreshold"),
		DefaultPushback: defaultPushback,
	}, opening, spawnRequests, behaviorLogger)

	var workerManager *worker.Manager

	spawner := regolith.NewSpawnAction(simClient, regolith.SpawnConfig{
		ModelURI:       viper.GetString("regolith.modelUri"),
		ScoopLink:      scoopLink,
		SpawnOffset:    spawnOffset,
		ForceMagnitude: viper.GetFloat64("regolith.forceMagnitude"),
		ForceDuration:  viper.GetDuration("regolith.forceDuration"),
	}, behaviorLogger, func(r core.RegolithSpawn) {
		workerManager.HandleSpawnResult(r)
		if influxMgr != nil {
			bucket, point := influx.SpawnPoint(sessionContext.GetSession().SessionName, r)
			_ = influxMgr.WritePoint(context.Background(), bucket, point)
		}
	})

	tickHandler := faults.NewTickHandler(faultTable, params.ViperStore{}, simClient, faults.TickConfig{
		LockedFriction: viper.GetFloat64("faults.lockedFriction"),
		Namespace:      viper.GetString("faults.namespace"),
	}, behaviorLogger, func(t core.FaultTransition) {
		workerManager.HandleFaultTransition(t)
		if influxMgr != nil {
			bucket, point := influx.FaultTransitionPoint(sessionContext.GetSession().SessionName, t)
			_ = influxMgr.WritePoint(context.Background(), bucket, point)
		}
	})

	workerManager = worker.NewManager(worker.Dependencies{
		Registry:       registry,
		LogManager:     slogMgr,
		ParserService:  parserService,
		SessionContext: sessionContext,
		Accumulator:    accumulator,
		FaultTable:     faultTable,
		TickHandler:    tickHandler,
		Detector:       detector,
		ScoopTipLink:   viper.GetString("regolith.scoopTipLink"),
	}, backend, spawner)

	// Event routing
	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	workerManager.RegisterHandlers(eventDispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workerManager.StartSpawnConsumer(ctx, spawnRequests)

	// Event stream subscription
	streamClient := bridge.New(bridge.Config{
		URL:    viper.GetString("sim.wsUrl"),
		APIKey: viper.GetString("sim.apiKey"),
		Topics: []string{
			worker.TopicSessionStart,
			worker.TopicSessionEnd,
			worker.TopicSessionEvent,
			worker.TopicTerrainModified,
			worker.TopicLinkStates,
			worker.TopicSimTick,
		},
	}, eventDispatcher, logger)
	if err := streamClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	logger.Info("Subscribed to event stream", "url", viper.GetString("sim.wsUrl"))

	// Status monitor, DB-backed perf history when available
	storageCfg := config.Storage()
	var queueStats *gormstorage.Backend
	switch b := backend.(type) {
	case *gormstorage.Backend:
		queueStats = b
	case *sqlitestorage.Backend:
		queueStats = b.Backend
	}
	var gormDB *gorm.DB
	if queueStats != nil {
		gormDB = queueStats.DB()
	}
	monitorService := monitor.NewService(monitor.Dependencies{
		DB:             gormDB,
		LogManager:     slogMgr,
		SessionContext: sessionContext,
		QueueStats:     queueStats,
		BehaviorStats:  workerManager.BehaviorStats,
		OutputDir:      logsDir,
		IsDatabaseValid: func() bool {
			return gormDB != nil && storageCfg.Type == "postgres"
		},
	})
	if storageCfg.Type == "postgres" && viper.GetBool("db.timescale") {
		if err := monitorService.ValidateHypertables(map[string][]string{
			"terrain_events":        {"session_id"},
			"regolith_spawns":       {"session_id"},
			"fault_transitions":     {"session_id", "joint_name"},
			"ground_contacts":       {"session_id"},
			"behavior_performances": {"session_id"},
		}); err != nil {
			logger.Error("Hypertable validation failed", "error", err)
		}
	}
	if err := monitorService.Start(); err != nil {
		logger.Error("Failed to start status monitor", "error", err)
	}

	// Review frontend reachability, informational only
	go func() {
		apiClient := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
		if err := apiClient.Healthcheck(); err != nil {
			logger.Info("Review frontend is offline", "error", err)
		} else {
			logger.Info("Review frontend is online")
		}
	}()

	// Periodic tick stats to InfluxDB
	if influxMgr != nil {
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					stats := workerManager.BehaviorStats()
					bucket, point := influx.TickStatsPoint(sessionContext.GetSession().SessionName, stats)
					_ = influxMgr.WritePoint(ctx, bucket, point)
				}
			}
		}()
	}

	// Wait for shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	cancel()
	_ = streamClient.Close()
	monitorService.Stop()

	if err := backend.Close(); err != nil {
		logger.Error("Error closing storage backend", "error", err)
	}

	uploadIfConfigured(backend, logger)

	if influxMgr != nil {
		influxMgr.Close()
	}
	if otelProvider != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = otelProvider.Shutdown(shutdownCtx)
	}
	_ = slogMgr.Flush(context.Background())
	if logFile != nil {
		_ = logFile.Close()
	}
	return nil
}

// uploadIfConfigured pushes the exported run archive to the review frontend.
func uploadIfConfigured(backend storage.Backend, logger *slog.Logger) {
	uploadable, ok := backend.(storage.Uploadable)
	if !ok {
		return
	}
	path := uploadable.GetExportedFilePath()
	if path == "" {
		return
	}
	serverURL := viper.GetString("api.serverUrl")
	if serverURL == "" {
		return
	}

	apiClient := api.New(serverURL, viper.GetString("api.apiKey"))
	meta := uploadable.GetExportMetadata()
	if err := apiClient.Upload(path, meta); err != nil {
		logger.Error("Failed to upload run archive", "error", err, "path", path)
		return
	}
	logger.Info("Uploaded run archive", "path", path, "session", meta.SessionName)
}
