package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/dispatcher"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/model/convert"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Topic names used on the simulator event stream.
const (
	TopicSessionStart    = ":SESSION:START:"
	TopicSessionEnd      = ":SESSION:END:"
	TopicSessionEvent    = ":SESSION:EVENT:"
	TopicTerrainModified = ":TERRAIN:MODIFIED:"
	TopicLinkStates      = ":LINK:STATES:"
	TopicSimTick         = ":SIM:TICK:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Session lifecycle - sync (everything else depends on an open session)
	d.Register(TopicSessionStart, m.handleSessionStart, dispatcher.Logged())
	d.Register(TopicSessionEnd, m.handleSessionEnd, dispatcher.Logged())

	// High-volume link pose stream - buffered
	d.Register(TopicLinkStates, m.handleLinkStates, dispatcher.Buffered(10000), dispatcher.Logged())

	// Terrain deformation notifications - buffered
	d.Register(TopicTerrainModified, m.handleTerrainModified, dispatcher.Buffered(1000), dispatcher.Logged())

	// Physics tick drives the fault state machines - buffered
	d.Register(TopicSimTick, m.handleTick, dispatcher.Buffered(100), dispatcher.Logged())

	// Free-form host annotations - buffered
	d.Register(TopicSessionEvent, m.handleSessionEvent, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	sess, site, err := m.deps.ParserService.ParseSessionStart(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if sess.StartTime.IsZero() {
		sess.StartTime = time.Now()
	}

	if err := m.backend.StartSession(&sess, &site); err != nil {
		return nil, fmt.Errorf("failed to open session in backend: %w", err)
	}

	// Backends assign IDs on the passed pointers
	modelSession := convert.CoreToSession(sess)
	modelSite := convert.CoreToSite(site)
	m.deps.SessionContext.SetSession(&modelSession, &modelSite)

	// Per-descent state resets with each new session
	m.deps.Detector.Reset()
	m.deps.Registry.Reset()
	m.spawnCount.Set(0)

	startEvent := core.SessionEvent{
		Time: sess.StartTime,
		Name: "sessionStart",
	}
	if err := m.backend.RecordSessionEvent(&startEvent); err != nil {
		m.deps.LogManager.Logger().Error("failed to record session start event", "error", err)
	}

	m.deps.LogManager.Logger().Info("session started",
		"session", sess.SessionName, "site", site.SiteName)
	return nil, nil
}

func (m *Manager) handleSessionEnd(e dispatcher.Event) (any, error) {
	endEvent := core.SessionEvent{
		Time: time.Now(),
		Tick: m.deps.SessionContext.GetTick(),
		Name: "sessionEnd",
	}
	if err := m.backend.RecordSessionEvent(&endEvent); err != nil {
		m.deps.LogManager.Logger().Error("failed to record session end event", "error", err)
	}

	if err := m.backend.EndSession(); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	m.deps.LogManager.Logger().Info("session ended",
		"tick", m.deps.SessionContext.GetTick())
	return nil, nil
}

func (m *Manager) handleTerrainModified(e dispatcher.Event) (any, error) {
	ev, err := m.deps.ParserService.ParseTerrainModified(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to log terrain event: %w", err)
	}
	if ev.Tick == 0 {
		ev.Tick = m.deps.SessionContext.GetTick()
	}

	if err := m.backend.RecordTerrainEvent(&ev); err != nil {
		m.deps.LogManager.Logger().Error("failed to record terrain event", "error", err)
	}

	if err := m.deps.Accumulator.OnTerrainModified(ev); err != nil {
		return nil, fmt.Errorf("terrain event rejected: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleLinkStates(e dispatcher.Event) (any, error) {
	states, err := m.deps.ParserService.ParseLinkStates(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse link states: %w", err)
	}

	for _, ls := range states {
		if ls.Name != m.deps.ScoopTipLink {
			continue
		}
		if m.deps.Detector.Observe(ls) {
			pos, ok := m.deps.Detector.GroundPosition()
			if !ok {
				continue
			}
			contact := core.GroundContact{Time: ls.Time, Position: pos}
			if err := m.backend.RecordGroundContact(&contact); err != nil {
				m.deps.LogManager.Logger().Error("failed to record ground contact", "error", err)
			}
		}
	}
	return nil, nil
}

func (m *Manager) handleTick(e dispatcher.Event) (any, error) {
	start := time.Now()

	tick, err := m.deps.ParserService.ParseTick(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tick: %w", err)
	}
	m.deps.SessionContext.SetTick(tick)

	m.deps.TickHandler.OnTick(context.Background())

	m.mu.Lock()
	m.lastTickDuration = time.Since(start)
	m.mu.Unlock()

	stats := m.BehaviorStats()
	if err := m.backend.RecordTickStats(&stats); err != nil {
		m.deps.LogManager.Logger().Error("failed to record tick stats", "error", err)
	}
	return nil, nil
}

func (m *Manager) handleSessionEvent(e dispatcher.Event) (any, error) {
	ev, err := m.deps.ParserService.ParseSessionEvent(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session event: %w", err)
	}
	if ev.Tick == 0 {
		ev.Tick = m.deps.SessionContext.GetTick()
	}

	if err := m.backend.RecordSessionEvent(&ev); err != nil {
		return nil, fmt.Errorf("failed to record session event: %w", err)
	}
	return nil, nil
}
