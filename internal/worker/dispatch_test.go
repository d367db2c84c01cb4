package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/cache"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/channel"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/config"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/dispatcher"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/faults"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/groundsense"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/logging"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/params"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/parser"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/regolith"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/session"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/sim"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/storage/memory"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

const testScoopTip = "lander::l_scoop_tip"

type testHarness struct {
	manager  *Manager
	backend  *memory.Backend
	simSvc   *sim.Memory
	flags    *params.MapStore
	requests channel.Channel[regolith.SpawnRequest]
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()}, logger)
	simSvc := sim.NewMemory()
	simSvc.SetLinkPose("lander::l_scoop", core.Pose{Position: core.Position3D{X: 1, Y: 0, Z: 0.5}})
	simSvc.AddJoint("j_ant_pan", 0.5)

	flags := params.NewMapStore()
	table := faults.NewTable(map[string]string{"j_ant_pan": "ant_pan_effort_failure"})

	requests := channel.New[regolith.SpawnRequest](16)
	opening := func() (core.Position3D, bool) {
		return core.Position3D{X: 1, Y: 0, Z: 0.5}, true
	}
	acc := regolith.NewAccumulator(regolith.AccumulatorConfig{
		SpawnThreshold:  1.0e-3,
		DefaultPushback: core.Position3D{X: -1},
	}, opening, requests, logger)

	var m *Manager

	spawner := regolith.NewSpawnAction(simSvc, regolith.SpawnConfig{
		ModelURI:       "model://regolith_sample",
		ScoopLink:      "lander::l_scoop",
		ForceMagnitude: 0.2,
		ForceDuration:  100 * time.Millisecond,
	}, logger, func(r core.RegolithSpawn) { m.HandleSpawnResult(r) })

	tickHandler := faults.NewTickHandler(table, flags, simSvc, faults.TickConfig{
		LockedFriction: 3000.0,
		Namespace:      "faults/",
	}, logger, func(tr core.FaultTransition) { m.HandleFaultTransition(tr) })

	deps := Dependencies{
		Registry:       cache.NewInstanceRegistry(),
		LogManager:     logging.NewSlogManager(),
		ParserService:  parser.NewService(logger),
		SessionContext: session.NewContext(),
		Accumulator:    acc,
		FaultTable:     table,
		TickHandler:    tickHandler,
		Detector:       groundsense.NewDetector(logger),
		ScoopTipLink:   testScoopTip,
	}
	m = NewManager(deps, backend, spawner)

	return &testHarness{
		manager:  m,
		backend:  backend,
		simSvc:   simSvc,
		flags:    flags,
		requests: requests,
	}
}

func testZerolog() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func event(topic string, payload string) dispatcher.Event {
	return dispatcher.Event{
		Topic:     topic,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now(),
	}
}

func TestRegisterHandlers(t *testing.T) {
	h := newTestHarness(t)

	d, err := dispatcher.New(logging.NewDispatcherLogger(testZerolog()))
	require.NoError(t, err)

	h.manager.RegisterHandlers(d)

	for _, topic := range []string{
		TopicSessionStart,
		TopicSessionEnd,
		TopicSessionEvent,
		TopicTerrainModified,
		TopicLinkStates,
		TopicSimTick,
	} {
		assert.True(t, d.HasHandler(topic), "missing handler for %s", topic)
	}
}

func TestHandleSessionStart(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleSessionStart(event(TopicSessionStart, `{
		"sessionName": "descent-01",
		"simHost": "gazebo-11",
		"timeSec": 10.0,
		"tag": "nightly",
		"site": {"siteName": "atacama_y1a", "body": "europa", "gravity": 1.315,
			"origin": {"x": 0, "y": 0, "z": 0}}
	}`))
	require.NoError(t, err)

	sess := h.manager.deps.SessionContext.GetSession()
	assert.Equal(t, "descent-01", sess.SessionName)
	site := h.manager.deps.SessionContext.GetSite()
	assert.Equal(t, "atacama_y1a", site.SiteName)
}

func TestHandleSessionStart_Malformed(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleSessionStart(event(TopicSessionStart, `{"simHost": "gazebo-11"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrMalformedPayload)
}

func TestHandleTerrainModified_Accumulates(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleTerrainModified(event(TopicTerrainModified, `{
		"timeSec": 12.5, "tick": 100, "operation": "dig",
		"volumeDelta": 0.0004, "center": {"x": 1.5, "y": 0, "z": 0.4}
	}`))
	require.NoError(t, err)

	assert.InDelta(t, 0.0004, h.manager.deps.Accumulator.VolumeDisplaced(), 1e-12)
	assert.Equal(t, 0, h.requests.Len())
}

func TestHandleTerrainModified_ThresholdSpawns(t *testing.T) {
	h := newTestHarness(t)

	for i := 0; i < 3; i++ {
		_, err := h.manager.handleTerrainModified(event(TopicTerrainModified, fmt.Sprintf(`{
			"timeSec": %f, "tick": %d, "operation": "dig",
			"volumeDelta": 0.0004, "center": {"x": 1.5, "y": 0, "z": 0.4}
		}`, 12.5+float64(i), 100+i)))
		require.NoError(t, err)
	}

	// Third event crosses the 1e-3 threshold: one request, accumulator reset
	require.Equal(t, 1, h.requests.Len())
	assert.Equal(t, 0.0, h.manager.deps.Accumulator.VolumeDisplaced())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.manager.StartSpawnConsumer(ctx, h.requests)

	assert.Eventually(t, func() bool {
		return h.backend.SpawnCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, h.manager.deps.Registry.Len())
	assert.Equal(t, "model://regolith_sample", h.simSvc.Spawned[0].ModelURI)
}

func TestHandleTerrainModified_NegativeVolumeRejected(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleTerrainModified(event(TopicTerrainModified, `{
		"timeSec": 12.5, "tick": 100, "operation": "dig",
		"volumeDelta": -0.0004, "center": {"x": 1.5, "y": 0, "z": 0.4}
	}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, regolith.ErrNegativeVolume)
	assert.Equal(t, 0.0, h.manager.deps.Accumulator.VolumeDisplaced())
}

func TestHandleTick_DrivesFaults(t *testing.T) {
	h := newTestHarness(t)

	h.flags.Set("faults/ant_pan_effort_failure", true)

	_, err := h.manager.handleTick(event(TopicSimTick, `{"tick": 500}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(500), h.manager.deps.SessionContext.GetTick())
	assert.Equal(t, 1, h.manager.deps.FaultTable.ActiveCount())

	friction, err := h.simSvc.JointFriction(context.Background(), "j_ant_pan")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, friction)

	// Clearing the flag restores the captured friction exactly
	h.flags.Set("faults/ant_pan_effort_failure", false)
	_, err = h.manager.handleTick(event(TopicSimTick, `{"tick": 501}`))
	require.NoError(t, err)

	friction, err = h.simSvc.JointFriction(context.Background(), "j_ant_pan")
	require.NoError(t, err)
	assert.Equal(t, 0.5, friction)
	assert.Equal(t, 0, h.manager.deps.FaultTable.ActiveCount())
}

func TestHandleTick_Malformed(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleTick(event(TopicSimTick, `{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrMalformedPayload)
}

func TestHandleLinkStates_DetectsGroundContact(t *testing.T) {
	h := newTestHarness(t)

	feed := func(timeSec, x, z float64) {
		payload := fmt.Sprintf(`{
			"timeSec": %f,
			"links": [{"name": %q, "pose": {"position": {"x": %f, "y": 0, "z": %f}}}]
		}`, timeSec, testScoopTip, x, z)
		_, err := h.manager.handleLinkStates(event(TopicLinkStates, payload))
		require.NoError(t, err)
	}

	// Steady descent establishes the reference direction
	timeSec := 100.0
	z := 2.0
	for i := 0; i < 15; i++ {
		feed(timeSec, 0, z)
		timeSec += 0.01
		z -= 0.01
	}
	require.False(t, h.manager.deps.Detector.Detected())

	// Lateral deflection diverges from the descent reference
	x := 0.0
	for i := 0; i < 10; i++ {
		feed(timeSec, x, z)
		timeSec += 0.01
		x += 0.01
	}

	assert.True(t, h.manager.deps.Detector.Detected())
}

func TestHandleLinkStates_IgnoresOtherLinks(t *testing.T) {
	h := newTestHarness(t)

	payload := `{
		"timeSec": 1.0,
		"links": [{"name": "lander::l_ant_panel", "pose": {"position": {"x": 0, "y": 0, "z": 2}}}]
	}`
	_, err := h.manager.handleLinkStates(event(TopicLinkStates, payload))
	require.NoError(t, err)
	assert.False(t, h.manager.deps.Detector.Detected())
}

func TestHandleSessionEvent(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleSessionEvent(event(TopicSessionEvent, `{
		"name": "armMoveComplete", "message": "arm stowed", "timeSec": 50.0, "tick": 2000
	}`))
	require.NoError(t, err)

	_, err = h.manager.handleSessionEvent(event(TopicSessionEvent, `{"message": "missing name"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrMalformedPayload)
}

func TestBehaviorStats(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.manager.handleTerrainModified(event(TopicTerrainModified, `{
		"timeSec": 12.5, "tick": 100, "operation": "dig",
		"volumeDelta": 0.0002, "center": {"x": 1.5, "y": 0, "z": 0.4}
	}`))
	require.NoError(t, err)

	h.manager.deps.SessionContext.SetTick(100)

	stats := h.manager.BehaviorStats()
	assert.Equal(t, uint64(100), stats.Tick)
	assert.InDelta(t, 0.0002, stats.VolumePending, 1e-12)
	assert.Equal(t, uint(0), stats.SpawnCount)
	assert.Equal(t, uint(0), stats.ActiveFaults)
}
