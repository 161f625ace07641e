// Package isoline queries a routing engine for driving-network reachability
// polygons and validates what comes back.
package isoline

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for isodistance queries.
var (
	// ErrUnavailable indicates the routing engine could not be reached or
	// answered with a server error.
	ErrUnavailable = errors.New("routing engine unavailable")
	// ErrDistanceLimit indicates the requested distance exceeds the
	// engine's configured contour limit.
	ErrDistanceLimit = errors.New("distance exceeds routing engine limit")
	// ErrNoNetwork indicates no routable road network near the origin.
	// Retrying will not change network topology.
	ErrNoNetwork = errors.New("no road network near origin")
	// ErrInvalidCoordinates indicates the origin is outside valid ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrEmptyGeometry indicates the engine answered with an empty or
	// degenerate polygon.
	ErrEmptyGeometry = errors.New("empty reachability geometry")
	// ErrOriginOutside indicates the returned polygon does not enclose the
	// origin, which means it cannot be a reachability contour for it.
	ErrOriginOutside = errors.New("geometry does not enclose origin")
)

// Error carries provider detail alongside the sentinel cause.
type Error struct {
	Provider string // provider that generated the error
	Code     string // provider-specific error code
	Message  string // human-readable message
	Err      error  // sentinel cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks the coordinate is within valid ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinates, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}

// Ring is a closed sequence of coordinates. The closing vertex may or may not
// repeat the first; Contains handles both.
type Ring []Coordinate

// Polygon is one outer ring plus optional holes.
type Polygon struct {
	// Rings holds the outer boundary first, then any holes.
	Rings []Ring
}

// Geometry is a polygon or multipolygon reachability contour.
type Geometry struct {
	Polygons []Polygon
}

// IsEmpty reports whether the geometry has no usable area.
func (g *Geometry) IsEmpty() bool {
	if g == nil {
		return true
	}
	for _, p := range g.Polygons {
		if len(p.Rings) > 0 && len(p.Rings[0]) >= 3 {
			return false
		}
	}
	return true
}

// Contains reports whether the point lies inside the geometry: within the
// outer ring of any polygon and not inside one of its holes.
func (g *Geometry) Contains(c Coordinate) bool {
	if g == nil {
		return false
	}
	for _, p := range g.Polygons {
		if len(p.Rings) == 0 {
			continue
		}
		if !ringContains(p.Rings[0], c) {
			continue
		}
		inHole := false
		for _, hole := range p.Rings[1:] {
			if ringContains(hole, c) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// ringContains uses even-odd ray casting in lon/lat space. Fine at the scale
// of driving-range contours; not meridian-crossing safe.
func ringContains(ring Ring, c Coordinate) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := ring[i], ring[j]
		if (pi.Lat > c.Lat) != (pj.Lat > c.Lat) {
			lonAtLat := pi.Lon + (c.Lat-pi.Lat)/(pj.Lat-pi.Lat)*(pj.Lon-pi.Lon)
			if c.Lon < lonAtLat {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Provider is a routing engine that can answer isodistance queries.
type Provider interface {
	// Isodistance returns the polygon of all points reachable within
	// distanceKm of driving from origin.
	Isodistance(ctx context.Context, origin Coordinate, distanceKm float64) (*Geometry, error)

	// MaxDistanceKm is the largest contour distance the engine accepts.
	MaxDistanceKm() float64

	// Name identifies the provider for logging and metrics.
	Name() string
}
