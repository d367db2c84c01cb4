// pkg/core/session.go
package core

import "time"

// Site represents the simulated landing site.
type Site struct {
	ID          uint
	SiteName    string
	DisplayName string
	Body        string // e.g. "europa", "enceladus"
	Gravity     float64
	Origin      Position3D
}

// Session represents one recorded simulation run.
type Session struct {
	ID               uint
	SessionName      string
	SimHost          string
	StartTime        time.Time
	EndTime          time.Time
	SiteID           uint
	ExtensionVersion string
	Tag              string
}

// UploadMetadata accompanies an exported session archive.
type UploadMetadata struct {
	SiteName        string
	SessionName     string
	SessionDuration float64
	Tag             string
}
