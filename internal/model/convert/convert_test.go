package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/geo"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

func TestCoreToSite_RoundTrip(t *testing.T) {
	site := core.Site{
		ID:          3,
		SiteName:    "atacama_y1a",
		DisplayName: "Atacama Y1A",
		Body:        "europa",
		Gravity:     1.315,
		Origin:      core.Position3D{X: 10, Y: -5, Z: 2},
	}

	got := SiteToCore(CoreToSite(site))
	assert.Equal(t, site, got)
}

func TestCoreToSession_RoundTrip(t *testing.T) {
	session := core.Session{
		ID:               7,
		SessionName:      "run_12",
		SimHost:          "gazebo-11",
		StartTime:        time.Unix(100, 0),
		EndTime:          time.Unix(400, 0),
		SiteID:           3,
		ExtensionVersion: "1.0.0",
		Tag:              "nightly",
	}

	got := SessionToCore(CoreToSession(session))
	assert.Equal(t, session, got)
}

func TestCoreToTerrainEvent(t *testing.T) {
	ev := core.TerrainModified{
		Time:        time.Unix(10, 0),
		Tick:        55,
		Operation:   "dig",
		VolumeDelta: 0.0004,
		Center:      core.Position3D{X: 1, Y: 2, Z: 0.5},
	}

	gormObj := CoreToTerrainEvent(ev)
	assert.Equal(t, uint64(55), gormObj.Tick)
	assert.Equal(t, "dig", gormObj.Operation)
	assert.InDelta(t, float32(0.5), gormObj.ElevationZ, 1e-6)

	pos, err := geo.PositionFromPoint(gormObj.Position)
	require.NoError(t, err)
	assert.Equal(t, ev.Center, pos)
}

func TestCoreToRegolithSpawn_RoundTrip(t *testing.T) {
	spawn := core.RegolithSpawn{
		ID:             0,
		Time:           time.Unix(20, 0),
		Tick:           90,
		ModelURI:       "model://regolith_sample",
		InstanceName:   "regolith_4",
		Position:       core.Position3D{X: 0.5, Y: 0.25, Z: 1},
		Direction:      core.Position3D{X: 0.6, Y: 0.8, Z: 0},
		ForceMagnitude: 0.08,
		Spawned:        true,
		Pushed:         true,
	}

	got := RegolithSpawnToCore(CoreToRegolithSpawn(spawn))
	assert.Equal(t, spawn, got)
}

func TestCoreToFaultTransition_RoundTrip(t *testing.T) {
	tr := core.FaultTransition{
		ID:        0,
		Time:      time.Unix(30, 0),
		Tick:      120,
		JointName: "j_ant_pan",
		FaultKey:  "ant_pan_effort_failure",
		Activated: true,
		Friction:  0.5,
	}

	got := FaultTransitionToCore(CoreToFaultTransition(tr))
	assert.Equal(t, tr, got)
}

func TestCoreToSessionEvent_DefaultsExtraData(t *testing.T) {
	e := core.SessionEvent{Time: time.Unix(5, 0), Name: "sessionStart"}

	gormObj := CoreToSessionEvent(e)
	assert.JSONEq(t, `{}`, string(gormObj.ExtraData))

	e.ExtraData = json.RawMessage(`{"operator":"cli"}`)
	gormObj = CoreToSessionEvent(e)
	assert.JSONEq(t, `{"operator":"cli"}`, string(gormObj.ExtraData))
}

func TestCoreToBehaviorPerformance(t *testing.T) {
	stats := core.TickStats{
		Time:               time.Unix(40, 0),
		Tick:               200,
		VolumePending:      0.002,
		SpawnCount:         4,
		ActiveFaults:       2,
		SkippedJoints:      1,
		LastTickDurationMs: 1.5,
	}

	gormObj := CoreToBehaviorPerformance(stats)
	assert.Equal(t, uint64(200), gormObj.Tick)
	assert.InDelta(t, 0.002, gormObj.VolumePending, 1e-12)
	assert.Equal(t, uint16(2), gormObj.ActiveFaults)
	assert.Equal(t, uint16(1), gormObj.SkippedJoints)
}
