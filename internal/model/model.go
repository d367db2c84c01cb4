package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ExtensionInfo{},
	&Site{},
	&Session{},
	&TerrainEvent{},
	&RegolithSpawn{},
	&FaultTransition{},
	&GroundContact{},
	&SessionEvent{},
	&BehaviorPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ExtensionInfo contains identifying information about this recorder instance
type ExtensionInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
	Website      string `json:"websiteURL" gorm:"size:255"`
}

func (*ExtensionInfo) TableName() string {
	return "extension_infos"
}

// BehaviorPerformance is the model for behavior-module performance metrics
type BehaviorPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	SessionID           uint              `json:"sessionId" gorm:"index:idx_behaviorperformance_session_id"`
	Session             Session           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick                uint64            `json:"tick"`
	BufferLengths       BufferLengths     `json:"bufferLengths" gorm:"embedded;embeddedPrefix:buffer_"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	VolumePending       float64           `json:"volumePending"`
	ActiveFaults        uint16            `json:"activeFaults"`
	SkippedJoints       uint16            `json:"skippedJoints"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*BehaviorPerformance) TableName() string {
	return "behavior_performances"
}

// BufferLengths is the model for dispatch buffer lengths
type BufferLengths struct {
	TerrainEvents    uint16 `json:"terrainEvents"`
	LinkStates       uint16 `json:"linkStates"`
	SpawnRequests    uint16 `json:"spawnRequests"`
	FaultTransitions uint16 `json:"faultTransitions"`
}

// WriteQueueLengths is the model for the storage write queue lengths
type WriteQueueLengths struct {
	TerrainEvents    uint16 `json:"terrainEvents"`
	RegolithSpawns   uint16 `json:"regolithSpawns"`
	FaultTransitions uint16 `json:"faultTransitions"`
	GroundContacts   uint16 `json:"groundContacts"`
	SessionEvents    uint16 `json:"sessionEvents"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Site is the main model for a simulated landing site
type Site struct {
	gorm.Model
	SiteName    string     `json:"siteName" gorm:"size:127"`
	DisplayName string     `json:"displayName" gorm:"size:127"`
	Body        string     `json:"body" gorm:"size:64"`
	Gravity     float64    `json:"gravity"`
	Location    geom.Point `json:"location"`
	Sessions    []Session
}

func (*Site) TableName() string {
	return "sites"
}

func (s *Site) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existingSite Site
	err = db.Where("site_name = ?", s.SiteName).First(&existingSite).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(s).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*s = existingSite
	return false, nil
}

// Session is the main model for one recorded simulation run
type Session struct {
	gorm.Model
	SessionName      string    `json:"sessionName" gorm:"size:200"`
	SimHost          string    `json:"simHost" gorm:"size:200"`
	StartTime        time.Time `json:"sessionStart" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime          time.Time `json:"sessionEnd" gorm:"type:timestamptz"`
	SiteID           uint
	Site             Site   `gorm:"foreignkey:SiteID"`
	ExtensionVersion string `json:"extensionVersion" gorm:"size:64;default:1.0.0"`
	Tag              string `json:"tag" gorm:"size:127"`

	TerrainEvents    []TerrainEvent
	RegolithSpawns   []RegolithSpawn
	FaultTransitions []FaultTransition
	GroundContacts   []GroundContact
	SessionEvents    []SessionEvent
}

func (*Session) TableName() string {
	return "sessions"
}

// TerrainEvent records one terrain-deformation notification
type TerrainEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_terrainevent_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_terrainevent_tick"`

	Operation   string     `json:"operation" gorm:"size:16"` // dig, dump, displace
	VolumeDelta float64    `json:"volumeDelta"`
	Position    geom.Point `json:"position"` // modification center, site frame
	ElevationZ  float32    `json:"elevationZ"`
}

func (*TerrainEvent) TableName() string {
	return "terrain_events"
}

// RegolithSpawn records one regolith particle spawn attempt and its pushback
type RegolithSpawn struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_regolithspawn_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_regolithspawn_tick"`

	ModelURI       string     `json:"modelUri" gorm:"size:128"`
	InstanceName   string     `json:"instanceName" gorm:"size:64;index:idx_regolithspawn_instance"`
	Position       geom.Point `json:"position"` // spawn position, site frame
	ElevationZ     float32    `json:"elevationZ"`
	Direction      string     `json:"direction" gorm:"size:64"` // unit pushback vector "x,y,z"
	ForceMagnitude float64    `json:"forceMagnitude"`
	Spawned        bool       `json:"spawned" gorm:"default:false"`
	Pushed         bool       `json:"pushed" gorm:"default:false"`
}

func (*RegolithSpawn) TableName() string {
	return "regolith_spawns"
}

// FaultTransition records one joint fault activation or deactivation
type FaultTransition struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_faulttransition_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_faulttransition_tick"`

	JointName string  `json:"jointName" gorm:"size:64;index:idx_faulttransition_joint"`
	FaultKey  string  `json:"faultKey" gorm:"size:64"`
	Activated bool    `json:"activated"`
	Friction  float64 `json:"friction"` // captured on activation, restored on deactivation
}

func (*FaultTransition) TableName() string {
	return "fault_transitions"
}

// GroundContact records a detected scoop-tip ground contact
type GroundContact struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_groundcontact_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	Position   geom.Point `json:"position"` // tip position at contact, site frame
	ElevationZ float32    `json:"elevationZ"`
}

func (*GroundContact) TableName() string {
	return "ground_contacts"
}

// SessionEvent is a generic event for session lifecycle and custom annotations
type SessionEvent struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time      `json:"time" gorm:"type:timestamptz;"`
	SessionID uint           `json:"sessionId" gorm:"index:idx_sessionevent_session_id"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64         `json:"tick"`
	Name      string         `json:"name" gorm:"size:64"` // sessionStart, sessionEnd, custom
	Message   string         `json:"message"`
	ExtraData datatypes.JSON `json:"extraData" gorm:"type:jsonb;default:'{}'"`
}

func (*SessionEvent) TableName() string {
	return "session_events"
}
