package parser

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseTerrainModified(t *testing.T) {
	s := testService()

	payload := json.RawMessage(`{
		"timeSec": 12.5,
		"tick": 981,
		"operation": "dig",
		"volumeDelta": 0.00042,
		"center": {"x": 1.5, "y": -2.0, "z": 0.25}
	}`)

	ev, err := s.ParseTerrainModified(payload)
	require.NoError(t, err)

	assert.Equal(t, uint64(981), ev.Tick)
	assert.Equal(t, "dig", ev.Operation)
	assert.InDelta(t, 0.00042, ev.VolumeDelta, 1e-12)
	assert.InDelta(t, 1.5, ev.Center.X, 1e-12)
	assert.Equal(t, time.Unix(12, 500000000).UTC(), ev.Time.UTC())
}

func TestParseTerrainModified_Malformed(t *testing.T) {
	s := testService()

	cases := map[string]string{
		"not json":           `{{`,
		"missing volume":     `{"tick": 1, "center": {"x":0,"y":0,"z":0}}`,
		"incomplete center":  `{"volumeDelta": 0.1, "center": {"x": 1}}`,
		"non-finite volume":  `{"volumeDelta": "NaN", "center": {"x":0,"y":0,"z":0}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.ParseTerrainModified(json.RawMessage(payload))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParseLinkStates(t *testing.T) {
	s := testService()

	payload := json.RawMessage(`{
		"timeSec": 3.0,
		"links": [
			{"name": "lander::l_scoop_tip", "pose": {
				"position": {"x": 1, "y": 2, "z": 3},
				"orientation": {"x": 0, "y": 0, "z": 0, "w": 1}
			}},
			{"name": "lander::l_ant_panel", "pose": {
				"position": {"x": 0, "y": 0, "z": 5}
			}}
		]
	}`)

	states, err := s.ParseLinkStates(payload)
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.Equal(t, "lander::l_scoop_tip", states[0].Name)
	assert.InDelta(t, 3.0, states[0].Pose.Position.Z, 1e-12)
	assert.InDelta(t, 1.0, states[0].Pose.Orientation.W, 1e-12)
	assert.Equal(t, "lander::l_ant_panel", states[1].Name)
}

func TestParseLinkStates_EmptyNameRejected(t *testing.T) {
	s := testService()

	payload := json.RawMessage(`{"links": [{"name": "", "pose": {"position": {"x":0,"y":0,"z":0}}}]}`)
	_, err := s.ParseLinkStates(payload)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseTick(t *testing.T) {
	s := testService()

	tick, err := s.ParseTick(json.RawMessage(`{"tick": 42}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), tick)

	_, err = s.ParseTick(json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseSessionStart(t *testing.T) {
	s := testService()

	payload := json.RawMessage(`{
		"sessionName": "atacama_y1a_run7",
		"simHost": "gazebo-11",
		"timeSec": 0.0,
		"tag": "nightly",
		"site": {
			"siteName": "atacama_y1a",
			"displayName": "Atacama Y1A",
			"body": "europa",
			"gravity": 1.315,
			"origin": {"x": 0, "y": 0, "z": 0}
		}
	}`)

	session, site, err := s.ParseSessionStart(payload)
	require.NoError(t, err)

	assert.Equal(t, "atacama_y1a_run7", session.SessionName)
	assert.Equal(t, "gazebo-11", session.SimHost)
	assert.Equal(t, "nightly", session.Tag)
	assert.Equal(t, "europa", site.Body)
	assert.InDelta(t, 1.315, site.Gravity, 1e-12)
}

func TestParseSessionStart_MissingName(t *testing.T) {
	s := testService()

	_, _, err := s.ParseSessionStart(json.RawMessage(`{"simHost": "gazebo-11"}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseSessionEvent(t *testing.T) {
	s := testService()

	payload := json.RawMessage(`{
		"name": "armMoveComplete",
		"message": "arm stowed",
		"timeSec": 50.0,
		"tick": 2000,
		"extraData": {"trajectory": "stow"}
	}`)

	ev, err := s.ParseSessionEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, "armMoveComplete", ev.Name)
	assert.Equal(t, "arm stowed", ev.Message)
	assert.Equal(t, uint64(2000), ev.Tick)
	assert.Equal(t, time.Unix(50, 0), ev.Time)
	assert.JSONEq(t, `{"trajectory": "stow"}`, string(ev.ExtraData))
}

func TestParseSessionEvent_MissingName(t *testing.T) {
	s := testService()

	_, err := s.ParseSessionEvent(json.RawMessage(`{"message": "no name"}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
