// Package convert maps the transport-level core types onto the GORM database
// models and back. Session IDs are stamped later by the storage writer, so
// converters leave SessionID zero.
package convert

import (
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/geo"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CoreToSite converts a core site to its GORM model.
func CoreToSite(s core.Site) model.Site {
	return model.Site{
		Model:       gorm.Model{ID: s.ID},
		SiteName:    s.SiteName,
		DisplayName: s.DisplayName,
		Body:        s.Body,
		Gravity:     s.Gravity,
		Location:    geo.PointFromPosition(s.Origin),
	}
}

// CoreToSession converts a core session to its GORM model.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		Model:            gorm.Model{ID: s.ID},
		SessionName:      s.SessionName,
		SimHost:          s.SimHost,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		SiteID:           s.SiteID,
		ExtensionVersion: s.ExtensionVersion,
		Tag:              s.Tag,
	}
}

// CoreToTerrainEvent converts a terrain notification to its GORM model.
func CoreToTerrainEvent(e core.TerrainModified) model.TerrainEvent {
	return model.TerrainEvent{
		Time:        e.Time,
		Tick:        e.Tick,
		Operation:   e.Operation,
		VolumeDelta: e.VolumeDelta,
		Position:    geo.PointFromPosition(e.Center),
		ElevationZ:  float32(e.Center.Z),
	}
}

// CoreToRegolithSpawn converts a spawn record to its GORM model.
func CoreToRegolithSpawn(s core.RegolithSpawn) model.RegolithSpawn {
	return model.RegolithSpawn{
		Time:           s.Time,
		Tick:           s.Tick,
		ModelURI:       s.ModelURI,
		InstanceName:   s.InstanceName,
		Position:       geo.PointFromPosition(s.Position),
		ElevationZ:     float32(s.Position.Z),
		Direction:      geo.VectorToString(s.Direction),
		ForceMagnitude: s.ForceMagnitude,
		Spawned:        s.Spawned,
		Pushed:         s.Pushed,
	}
}

// CoreToFaultTransition converts a fault transition to its GORM model.
func CoreToFaultTransition(t core.FaultTransition) model.FaultTransition {
	return model.FaultTransition{
		Time:      t.Time,
		Tick:      t.Tick,
		JointName: t.JointName,
		FaultKey:  t.FaultKey,
		Activated: t.Activated,
		Friction:  t.Friction,
	}
}

// CoreToGroundContact converts a ground contact to its GORM model.
func CoreToGroundContact(g core.GroundContact) model.GroundContact {
	return model.GroundContact{
		Time:       g.Time,
		Position:   geo.PointFromPosition(g.Position),
		ElevationZ: float32(g.Position.Z),
	}
}

// CoreToSessionEvent converts a session event to its GORM model.
func CoreToSessionEvent(e core.SessionEvent) model.SessionEvent {
	extra := datatypes.JSON(`{}`)
	if len(e.ExtraData) > 0 {
		extra = datatypes.JSON(e.ExtraData)
	}
	return model.SessionEvent{
		Time:      e.Time,
		Tick:      e.Tick,
		Name:      e.Name,
		Message:   e.Message,
		ExtraData: extra,
	}
}

// CoreToBehaviorPerformance converts a tick snapshot to its GORM model.
func CoreToBehaviorPerformance(t core.TickStats) model.BehaviorPerformance {
	return model.BehaviorPerformance{
		Time:                t.Time,
		Tick:                t.Tick,
		VolumePending:       t.VolumePending,
		ActiveFaults:        uint16(t.ActiveFaults),
		SkippedJoints:       uint16(t.SkippedJoints),
		LastWriteDurationMs: t.LastTickDurationMs,
	}
}
