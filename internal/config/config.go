package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SqliteConfig holds settings for the in-memory SQLite backend with periodic
// disk dumps.
type SqliteConfig struct {
	DumpPath        string `json:"dumpPath" mapstructure:"dumpPath"`
	DumpIntervalSec int    `json:"dumpIntervalSec" mapstructure:"dumpIntervalSec"`
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	Sqlite SqliteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DefaultJoints maps each tracked arm/antenna joint to the fault key the
// operators toggle in the parameter store.
var DefaultJoints = map[string]string{
	"j_shou_yaw":   "shou_yaw_effort_failure",
	"j_shou_pitch": "shou_pitch_effort_failure",
	"j_prox_pitch": "prox_pitch_effort_failure",
	"j_dist_pitch": "dist_pitch_effort_failure",
	"j_hand_yaw":   "hand_yaw_effort_failure",
	"j_scoop_yaw":  "scoop_yaw_effort_failure",
	"j_ant_pan":    "ant_pan_effort_failure",
	"j_ant_tilt":   "ant_tilt_effort_failure",
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Run")
	viper.SetDefault("logsDir", "./owlogs")

	viper.SetDefault("regolith.spawnThreshold", 1.0e-3)
	viper.SetDefault("regolith.forceMagnitude", 0.2)
	viper.SetDefault("regolith.forceDuration", "100ms")
	viper.SetDefault("regolith.modelUri", "model://regolith_sample")
	viper.SetDefault("regolith.scoopLink", "lander::l_scoop")
	viper.SetDefault("regolith.scoopTipLink", "lander::l_scoop_tip")
	viper.SetDefault("regolith.spawnOffset", "0,0,0.05")
	viper.SetDefault("regolith.defaultPushback", "-1,0,0")

	viper.SetDefault("faults.lockedFriction", 3000.0)
	viper.SetDefault("faults.namespace", "faults/")
	viper.SetDefault("faults.joints", DefaultJoints)

	viper.SetDefault("sim.serverUrl", "http://localhost:9090")
	viper.SetDefault("sim.apiKey", "")
	viper.SetDefault("sim.timeoutMs", 250)
	viper.SetDefault("sim.wsUrl", "ws://localhost:9090/events")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./owruns")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpPath", "./owruns/ow_behaviors.db")
	viper.SetDefault("storage.sqlite.dumpIntervalSec", 30)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "ow_behaviors")
	viper.SetDefault("db.timescale", false)

	viper.SetDefault("influx.enabled", true)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "ow-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("ow_behaviors.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Storage returns the configured storage backend settings.
func Storage() StorageConfig {
	var cfg StorageConfig
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		return StorageConfig{Type: "memory"}
	}
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return cfg
}

// Joints returns the tracked joint set as a joint-name to fault-key map.
func Joints() map[string]string {
	joints := viper.GetStringMapString("faults.joints")
	if len(joints) == 0 {
		return DefaultJoints
	}
	return joints
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float64 config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
