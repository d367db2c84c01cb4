// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// RunExport is the root JSON structure for an exported session
type RunExport struct {
	ExtensionVersion string                 `json:"extensionVersion"`
	SessionName      string                 `json:"sessionName"`
	SimHost          string                 `json:"simHost"`
	SiteName         string                 `json:"siteName"`
	Body             string                 `json:"body"`
	Gravity          float64                `json:"gravity"`
	Tag              string                 `json:"tag"`
	EndTick          uint64                 `json:"endTick"`
	TerrainEvents    []core.TerrainModified `json:"terrainEvents"`
	RegolithSpawns   []core.RegolithSpawn   `json:"regolithSpawns"`
	FaultTransitions []core.FaultTransition `json:"faultTransitions"`
	GroundContacts   []core.GroundContact   `json:"groundContacts"`
	SessionEvents    []core.SessionEvent    `json:"sessionEvents"`
	TickStats        []core.TickStats       `json:"tickStats"`
}

// exportJSON writes the session data to a gzipped JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	sessionName := strings.ReplaceAll(b.session.SessionName, " ", "_")
	sessionName = strings.ReplaceAll(sessionName, ":", "_")
	timestamp := b.session.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", sessionName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", sessionName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		ExtensionVersion: b.session.ExtensionVersion,
		SessionName:      b.session.SessionName,
		SimHost:          b.session.SimHost,
		Tag:              b.session.Tag,
		TerrainEvents:    b.terrainEvents,
		RegolithSpawns:   b.regolithSpawns,
		FaultTransitions: b.faultTransitions,
		GroundContacts:   b.groundContacts,
		SessionEvents:    b.sessionEvents,
		TickStats:        b.tickStats,
	}
	if b.site != nil {
		export.SiteName = b.site.SiteName
		export.Body = b.site.Body
		export.Gravity = b.site.Gravity
	}
	export.EndTick = b.maxTick()
	return export
}

// maxTick returns the highest tick seen across all recorded streams.
func (b *Backend) maxTick() uint64 {
	var maxTick uint64
	for _, e := range b.terrainEvents {
		if e.Tick > maxTick {
			maxTick = e.Tick
		}
	}
	for _, s := range b.regolithSpawns {
		if s.Tick > maxTick {
			maxTick = s.Tick
		}
	}
	for _, t := range b.faultTransitions {
		if t.Tick > maxTick {
			maxTick = t.Tick
		}
	}
	for _, t := range b.tickStats {
		if t.Tick > maxTick {
			maxTick = t.Tick
		}
	}
	return maxTick
}

func (b *Backend) writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// GetExportedFilePath returns the path of the most recent export, or empty
// if nothing has been exported yet.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata describing the recorded session for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta := core.UploadMetadata{}
	if b.session == nil {
		return meta
	}

	meta.SessionName = b.session.SessionName
	meta.Tag = b.session.Tag
	if b.site != nil {
		meta.SiteName = b.site.SiteName
	}
	if !b.session.EndTime.IsZero() && b.session.EndTime.After(b.session.StartTime) {
		meta.SessionDuration = b.session.EndTime.Sub(b.session.StartTime).Seconds()
	} else if n := len(b.tickStats); n > 0 {
		meta.SessionDuration = b.tickStats[n-1].Time.Sub(b.session.StartTime).Seconds()
	}
	return meta
}
