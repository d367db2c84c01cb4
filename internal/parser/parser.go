// Package parser decodes JSON payloads from the simulation host into core
// types. Malformed payloads are rejected with an error and never partially
// applied.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// ErrMalformedPayload is returned when a payload fails structural validation.
var ErrMalformedPayload = errors.New("malformed payload")

// Service decodes host payloads. It is stateless; the logger records what was
// rejected and why.
type Service struct {
	logger *slog.Logger
}

// NewService creates a parser service.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// simTime converts the host's simulation-time seconds into a time.Time.
func simTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}

type positionDTO struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

func (p positionDTO) toCore() (core.Position3D, error) {
	if p.X == nil || p.Y == nil || p.Z == nil {
		return core.Position3D{}, fmt.Errorf("%w: incomplete position", ErrMalformedPayload)
	}
	for _, v := range []float64{*p.X, *p.Y, *p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Position3D{}, fmt.Errorf("%w: non-finite coordinate", ErrMalformedPayload)
		}
	}
	return core.Position3D{X: *p.X, Y: *p.Y, Z: *p.Z}, nil
}

type poseDTO struct {
	Position    positionDTO     `json:"position"`
	Orientation core.Quaternion `json:"orientation"`
}

// ParseTerrainModified decodes a terrain-deformation notification.
// The volume delta must be present and finite; sign validation is left to
// the accumulator, which owns the rejection policy.
func (s *Service) ParseTerrainModified(payload json.RawMessage) (core.TerrainModified, error) {
	var dto struct {
		TimeSec     float64     `json:"timeSec"`
		Tick        uint64      `json:"tick"`
		Operation   string      `json:"operation"`
		VolumeDelta *float64    `json:"volumeDelta"`
		Center      positionDTO `json:"center"`
	}
	if err := json.Unmarshal(payload, &dto); err != nil {
		s.logger.Error("undecodable terrain payload", "error", err)
		return core.TerrainModified{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dto.VolumeDelta == nil {
		return core.TerrainModified{}, fmt.Errorf("%w: missing volumeDelta", ErrMalformedPayload)
	}
	if math.IsNaN(*dto.VolumeDelta) || math.IsInf(*dto.VolumeDelta, 0) {
		return core.TerrainModified{}, fmt.Errorf("%w: non-finite volumeDelta", ErrMalformedPayload)
	}
	center, err := dto.Center.toCore()
	if err != nil {
		return core.TerrainModified{}, err
	}

	return core.TerrainModified{
		Time:        simTime(dto.TimeSec),
		Tick:        dto.Tick,
		Operation:   dto.Operation,
		VolumeDelta: *dto.VolumeDelta,
		Center:      center,
	}, nil
}

// ParseLinkStates decodes a link-state batch.
func (s *Service) ParseLinkStates(payload json.RawMessage) ([]core.LinkState, error) {
	var dto struct {
		TimeSec float64 `json:"timeSec"`
		Links   []struct {
			Name string  `json:"name"`
			Pose poseDTO `json:"pose"`
		} `json:"links"`
	}
	if err := json.Unmarshal(payload, &dto); err != nil {
		s.logger.Error("undecodable link-states payload", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	states := make([]core.LinkState, 0, len(dto.Links))
	for _, link := range dto.Links {
		if link.Name == "" {
			return nil, fmt.Errorf("%w: link with empty name", ErrMalformedPayload)
		}
		position, err := link.Pose.Position.toCore()
		if err != nil {
			return nil, err
		}
		states = append(states, core.LinkState{
			Time: simTime(dto.TimeSec),
			Name: link.Name,
			Pose: core.Pose{Position: position, Orientation: link.Pose.Orientation},
		})
	}
	return states, nil
}

// ParseTick decodes a physics-tick notification and returns the tick number.
func (s *Service) ParseTick(payload json.RawMessage) (uint64, error) {
	var dto struct {
		Tick *uint64 `json:"tick"`
	}
	if err := json.Unmarshal(payload, &dto); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dto.Tick == nil {
		return 0, fmt.Errorf("%w: missing tick", ErrMalformedPayload)
	}
	return *dto.Tick, nil
}

// ParseSessionStart decodes session metadata sent when a run begins.
func (s *Service) ParseSessionStart(payload json.RawMessage) (core.Session, core.Site, error) {
	var dto struct {
		SessionName string  `json:"sessionName"`
		SimHost     string  `json:"simHost"`
		TimeSec     float64 `json:"timeSec"`
		Tag         string  `json:"tag"`
		Site        struct {
			SiteName    string      `json:"siteName"`
			DisplayName string      `json:"displayName"`
			Body        string      `json:"body"`
			Gravity     float64     `json:"gravity"`
			Origin      positionDTO `json:"origin"`
		} `json:"site"`
	}
	if err := json.Unmarshal(payload, &dto); err != nil {
		s.logger.Error("undecodable session payload", "error", err)
		return core.Session{}, core.Site{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dto.SessionName == "" {
		return core.Session{}, core.Site{}, fmt.Errorf("%w: missing sessionName", ErrMalformedPayload)
	}

	site := core.Site{
		SiteName:    dto.Site.SiteName,
		DisplayName: dto.Site.DisplayName,
		Body:        dto.Site.Body,
		Gravity:     dto.Site.Gravity,
	}
	if origin, err := dto.Site.Origin.toCore(); err == nil {
		site.Origin = origin
	}

	session := core.Session{
		SessionName: dto.SessionName,
		SimHost:     dto.SimHost,
		StartTime:   simTime(dto.TimeSec),
		Tag:         dto.Tag,
	}
	return session, site, nil
}

// ParseSessionEvent decodes a free-form session annotation from the host.
func (s *Service) ParseSessionEvent(payload json.RawMessage) (core.SessionEvent, error) {
	var dto struct {
		Name      string          `json:"name"`
		Message   string          `json:"message"`
		TimeSec   float64         `json:"timeSec"`
		Tick      uint64          `json:"tick"`
		ExtraData json.RawMessage `json:"extraData"`
	}
	if err := json.Unmarshal(payload, &dto); err != nil {
		return core.SessionEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dto.Name == "" {
		return core.SessionEvent{}, fmt.Errorf("%w: missing event name", ErrMalformedPayload)
	}
	return core.SessionEvent{
		Time:      simTime(dto.TimeSec),
		Tick:      dto.Tick,
		Name:      dto.Name,
		Message:   dto.Message,
		ExtraData: dto.ExtraData,
	}, nil
}
