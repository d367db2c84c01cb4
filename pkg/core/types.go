// pkg/core/types.go
package core

// Position3D represents a 3D coordinate without GIS dependencies.
type Position3D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
	Z float64 `json:"z"` // elevation above site datum
}

// Quaternion represents an orientation in the site frame.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity returns the identity orientation.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// Pose combines a position and an orientation.
type Pose struct {
	Position    Position3D `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// Sub returns the component-wise difference p - o.
func (p Position3D) Sub(o Position3D) Position3D {
	return Position3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Add returns the component-wise sum p + o.
func (p Position3D) Add(o Position3D) Position3D {
	return Position3D{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Scale returns p scaled by s.
func (p Position3D) Scale(s float64) Position3D {
	return Position3D{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}
