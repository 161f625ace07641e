// Package vehicle reads and validates the vehicle state snapshot an
// estimation run is based on.
package vehicle

import (
	"context"
	"errors"
	"time"
)

// Vehicle state errors.
var (
	// ErrStateUnavailable indicates a required telemetry point is missing
	// or stale. The run cannot proceed without it.
	ErrStateUnavailable = errors.New("vehicle state unavailable")
)

// PositionSource records where the vehicle position came from.
type PositionSource string

const (
	// PositionGPS means the position came from the vehicle's tracker.
	PositionGPS PositionSource = "gps"
	// PositionDefault means the tracker was unavailable and the configured
	// home position was used instead.
	PositionDefault PositionSource = "default"
)

// State is the vehicle snapshot used for one estimation run. SoC and SoH are
// fractions; they are clamped to physical ranges before use.
type State struct {
	// SoC is the state of charge in [0, 1].
	SoC float64 `json:"soc"`

	// SoH is the state of health in (0, 1].
	SoH float64 `json:"soh"`

	// Lat and Lon locate the vehicle.
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// PositionSource records whether Lat/Lon came from GPS or the
	// configured fallback.
	PositionSource PositionSource `json:"position_source"`

	// IsCharging reports whether the vehicle is currently charging.
	IsCharging bool `json:"is_charging"`

	// ChargingStatus is the raw charging state string from telemetry.
	ChargingStatus string `json:"charging_status"`

	// OdometerKm is the current odometer reading, if the sensor reported one.
	OdometerKm *float64 `json:"odometer_km,omitempty"`

	// OEMRangeKm is the manufacturer's own range estimate, kept alongside
	// the computed range for comparison in the renderer.
	OEMRangeKm *float64 `json:"oem_range_km,omitempty"`

	// FetchedAt is when the snapshot was read.
	FetchedAt time.Time `json:"fetched_at"`
}

// Reading is the raw telemetry a provider returns before validation. Pointer
// fields are nil when the underlying sensor is missing or stale.
type Reading struct {
	SoC            *float64 // fraction [0, 1]
	SoH            *float64 // fraction (0, 1]
	Lat            *float64
	Lon            *float64
	ChargingStatus string
	OdometerKm     *float64
	OEMRangeKm     *float64
}

// Provider supplies raw vehicle telemetry.
type Provider interface {
	// Read fetches the current telemetry snapshot.
	Read(ctx context.Context) (*Reading, error)

	// Name identifies the provider for logging.
	Name() string
}
