package sim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

func TestClient_SpawnModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/models/spawn", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		var req SpawnModelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "model://regolith_sample", req.ModelURI)

		json.NewEncoder(w).Encode(SpawnModelResponse{InstanceName: "regolith_7"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit", time.Second)
	resp, err := c.SpawnModel(context.Background(), SpawnModelRequest{
		ModelURI: "model://regolith_sample",
		Pose:     core.Pose{Position: core.Position3D{X: 1.5, Y: 0.8, Z: 0.65}},
	})

	require.NoError(t, err)
	assert.Equal(t, "regolith_7", resp.InstanceName)
}

func TestClient_ApplyForce_SerializesDuration(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/models/regolith_7/wrench", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	err := c.ApplyForce(context.Background(), ApplyForceRequest{
		InstanceName: "regolith_7",
		Force:        core.Position3D{X: -0.2},
		Duration:     100 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.1, got["durationSec"].(float64), 1e-9)
}

func TestClient_JointFriction_RoundTrip(t *testing.T) {
	friction := 0.5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]float64{"friction": friction})
		case http.MethodPut:
			var body map[string]float64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			friction = body["friction"]
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)

	got, err := c.JointFriction(context.Background(), "j_ant_pan")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)

	require.NoError(t, c.SetJointFriction(context.Background(), "j_ant_pan", 3000.0))
	got, err = c.JointFriction(context.Background(), "j_ant_pan")
	require.NoError(t, err)
	assert.InDelta(t, 3000.0, got, 1e-9)
}

func TestClient_JointNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.JointFriction(context.Background(), "j_missing")
	assert.ErrorIs(t, err, ErrJointNotFound)
}

func TestClient_LinkNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.LinkPose(context.Background(), "lander::l_missing")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestMemory_ImplementsService(t *testing.T) {
	m := NewMemory()
	m.AddJoint("j_ant_pan", 0.5)

	f, err := m.JointFriction(context.Background(), "j_ant_pan")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-12)

	_, err = m.JointFriction(context.Background(), "j_missing")
	assert.ErrorIs(t, err, ErrJointNotFound)

	resp, err := m.SpawnModel(context.Background(), SpawnModelRequest{ModelURI: "model://regolith_sample"})
	require.NoError(t, err)
	assert.Equal(t, "regolith_1", resp.InstanceName)
}
