// Package estimator runs one range estimation end to end: vehicle state in,
// four validated reachability bands out.
package estimator

import (
	"time"

	"github.com/rangecast/rangecast/internal/band"
	"github.com/rangecast/rangecast/internal/isoline"
	"github.com/rangecast/rangecast/internal/vehicle"
	"github.com/rangecast/rangecast/internal/weather"
)

// FailureReason explains why a band has no polygon. Empty means success.
type FailureReason string

const (
	// FailureNone marks a successful band.
	FailureNone FailureReason = ""
	// FailureNoNetwork: no road network near the origin. Terminal, not retried.
	FailureNoNetwork FailureReason = "no_network"
	// FailureTransport: the routing engine could not be reached.
	FailureTransport FailureReason = "transport"
	// FailureTimeout: the run deadline expired before the band finished.
	FailureTimeout FailureReason = "timeout"
	// FailureInvalidGeometry: the engine's contour failed validation.
	FailureInvalidGeometry FailureReason = "invalid_geometry"
	// FailureBelowMinimum: the band distance is too short to contour.
	FailureBelowMinimum FailureReason = "below_minimum"
)

// BandResult is the outcome for one energy band. A failed band keeps its
// slot: Geometry is nil and FailureReason says why.
type BandResult struct {
	// Band is the energy band this result belongs to.
	Band band.Band `json:"band"`

	// DistanceKm is the planned maximum traversable distance.
	DistanceKm float64 `json:"distance_km"`

	// QueriedKm is the distance actually sent to the routing engine, which
	// differs from DistanceKm when the engine limit forced a clamp.
	QueriedKm float64 `json:"queried_km,omitempty"`

	// Geometry is the reachability polygon, nil on failure.
	Geometry *isoline.Geometry `json:"geometry"`

	// Clamped reports the distance was clamped to the engine limit.
	Clamped bool `json:"clamped"`

	// FailureReason is empty on success.
	FailureReason FailureReason `json:"failure_reason,omitempty"`
}

// HasPolygon reports whether the band produced a usable contour.
func (r BandResult) HasPolygon() bool {
	return r.Geometry != nil
}

// RunResult is the complete output of one estimation run, consumed by the
// renderer contract. Bands are ordered largest to smallest expected distance
// and all slots are always present.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`

	// Vehicle is the state snapshot the run used.
	Vehicle vehicle.State `json:"vehicle"`

	// Weather is the observation the run used.
	Weather weather.Observation `json:"weather"`

	// WeatherSource is "provider" or "default".
	WeatherSource string `json:"weather_source"`

	// ConsumptionKWhPerKm is the blended consumption figure.
	ConsumptionKWhPerKm float64 `json:"consumption_kwh_per_km"`

	// Bands are the per-band results in planner order.
	Bands []BandResult `json:"bands"`

	// Partial reports the run deadline expired and some bands carry
	// timeout failures.
	Partial bool `json:"partial"`
}

// MaxRangeKm returns the largest band distance, the headline range figure.
func (r *RunResult) MaxRangeKm() float64 {
	if len(r.Bands) == 0 {
		return 0
	}
	return r.Bands[0].DistanceKm
}

// PolygonCount returns how many bands produced a contour.
func (r *RunResult) PolygonCount() int {
	n := 0
	for _, b := range r.Bands {
		if b.HasPolygon() {
			n++
		}
	}
	return n
}
