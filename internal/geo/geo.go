package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

// GEO POINTS
// Positions are in the site-local frame (meters from the site origin), not an
// Earth datum. Geometry data is stored in the WKB format so SQLite, which has
// no spatial awareness, can round-trip it through the inherent Scan function.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromPosition converts a site-frame position into an XYZ geometry point.
func PointFromPosition(p core.Position3D) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Z:    p.Z,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
}

// PositionFromPoint converts a geometry point back into a site-frame position.
func PositionFromPoint(pt geom.Point) (core.Position3D, error) {
	xy, ok := pt.XY()
	if !ok {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if coords, ok := pt.Coordinates(); ok {
		z = coords.Z
	}
	return core.Position3D{X: xy.X, Y: xy.Y, Z: z}, nil
}

// PointFromString parses an "x,y" or "x,y,z" string into a geometry point and
// returns its elevation.
func PointFromString(
	coords string,
) (
	point geom.Point,
	elev float64,
	err error,
) {
	pos, err := Position3DFromString(coords)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), 0, err
	}
	return PointFromPosition(pos), pos.Z, nil
}

// Position3DFromString parses an "x,y" or "x,y,z" string into a core.Position3D.
// Used for config vectors like the default pushback direction.
func Position3DFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	return core.Position3D{X: x, Y: y, Z: z}, nil
}

// VectorToString formats a vector as "x,y,z" for flat storage columns.
func VectorToString(v core.Position3D) string {
	return strconv.FormatFloat(v.X, 'f', -1, 64) + "," +
		strconv.FormatFloat(v.Y, 'f', -1, 64) + "," +
		strconv.FormatFloat(v.Z, 'f', -1, 64)
}
