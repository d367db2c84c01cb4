package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// Client talks to the simulation host's behavior API over HTTP. The request
// timeout bounds every call so a slow host cannot stall the physics tick.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new simulation API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SpawnModel requests model instantiation at the given pose.
func (c *Client) SpawnModel(ctx context.Context, req SpawnModelRequest) (SpawnModelResponse, error) {
	var resp SpawnModelResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/models/spawn", req, &resp)
	if err != nil {
		return SpawnModelResponse{}, fmt.Errorf("spawn model %s: %w", req.ModelURI, err)
	}
	if resp.InstanceName == "" {
		resp.InstanceName = req.InstanceName
	}
	return resp, nil
}

// ApplyForce issues a scoped wrench on a spawned instance.
func (c *Client) ApplyForce(ctx context.Context, req ApplyForceRequest) error {
	req.DurationSec = req.Duration.Seconds()
	path := fmt.Sprintf("/api/v1/models/%s/wrench", req.InstanceName)
	if err := c.do(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("apply force on %s: %w", req.InstanceName, err)
	}
	return nil
}

// LinkPose returns the current pose of a named link.
func (c *Client) LinkPose(ctx context.Context, name string) (core.Pose, error) {
	var pose core.Pose
	path := fmt.Sprintf("/api/v1/links/%s/pose", name)
	if err := c.do(ctx, http.MethodGet, path, nil, &pose); err != nil {
		return core.Pose{}, err
	}
	return pose, nil
}

// JointFriction reads the friction parameter of a joint.
func (c *Client) JointFriction(ctx context.Context, joint string) (float64, error) {
	var out struct {
		Friction float64 `json:"friction"`
	}
	path := fmt.Sprintf("/api/v1/joints/%s/friction", joint)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Friction, nil
}

// SetJointFriction writes the friction parameter of a joint.
func (c *Client) SetJointFriction(ctx context.Context, joint string, friction float64) error {
	body := struct {
		Friction float64 `json:"friction"`
	}{Friction: friction}
	path := fmt.Sprintf("/api/v1/joints/%s/friction", joint)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		if strings.Contains(path, "/joints/") {
			return ErrJointNotFound
		}
		if strings.Contains(path, "/links/") {
			return ErrLinkNotFound
		}
		return fmt.Errorf("not found: %s", path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
