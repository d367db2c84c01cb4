package convert

import (
	"encoding/json"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/geo"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// SiteToCore converts a GORM site back to its core type.
func SiteToCore(s model.Site) core.Site {
	origin, _ := geo.PositionFromPoint(s.Location)
	return core.Site{
		ID:          s.ID,
		SiteName:    s.SiteName,
		DisplayName: s.DisplayName,
		Body:        s.Body,
		Gravity:     s.Gravity,
		Origin:      origin,
	}
}

// SessionToCore converts a GORM session back to its core type.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:               s.ID,
		SessionName:      s.SessionName,
		SimHost:          s.SimHost,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		SiteID:           s.SiteID,
		ExtensionVersion: s.ExtensionVersion,
		Tag:              s.Tag,
	}
}

// RegolithSpawnToCore converts a GORM spawn record back to its core type.
func RegolithSpawnToCore(s model.RegolithSpawn) core.RegolithSpawn {
	position, _ := geo.PositionFromPoint(s.Position)
	direction, _ := geo.Position3DFromString(s.Direction)
	return core.RegolithSpawn{
		ID:             s.ID,
		Time:           s.Time,
		Tick:           s.Tick,
		ModelURI:       s.ModelURI,
		InstanceName:   s.InstanceName,
		Position:       position,
		Direction:      direction,
		ForceMagnitude: s.ForceMagnitude,
		Spawned:        s.Spawned,
		Pushed:         s.Pushed,
	}
}

// FaultTransitionToCore converts a GORM fault transition back to its core type.
func FaultTransitionToCore(t model.FaultTransition) core.FaultTransition {
	return core.FaultTransition{
		ID:        t.ID,
		Time:      t.Time,
		Tick:      t.Tick,
		JointName: t.JointName,
		FaultKey:  t.FaultKey,
		Activated: t.Activated,
		Friction:  t.Friction,
	}
}

// SessionEventToCore converts a GORM session event back to its core type.
func SessionEventToCore(e model.SessionEvent) core.SessionEvent {
	return core.SessionEvent{
		ID:        e.ID,
		Time:      e.Time,
		Tick:      e.Tick,
		Name:      e.Name,
		Message:   e.Message,
		ExtraData: json.RawMessage(e.ExtraData),
	}
}
