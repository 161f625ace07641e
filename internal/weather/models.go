// Package weather supplies the ambient conditions an estimation run is
// evaluated under.
package weather

import (
	"context"
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation represents ambient conditions at a point. It is treated as
// constant for a whole estimation run.
type Observation struct {
	// Location coordinates.
	Lat float64
	Lon float64

	// TemperatureC is the ambient temperature in Celsius.
	TemperatureC float64

	// WindSpeedMS is the wind speed in m/s, never negative.
	WindSpeedMS float64

	// WindDirectionDeg is the direction the wind blows from, in [0, 360).
	WindDirectionDeg float64

	// Humidity percentage (0-100).
	Humidity float64

	// Description and Icon are passed through to the renderer.
	Description string
	Icon        string

	// ObservedAt is the provider's observation time; FetchedAt is when we
	// read it.
	ObservedAt time.Time
	FetchedAt  time.Time
}

// Default returns the documented fallback used when no weather is available:
// mild temperature with a conservative breeze, so a weather outage degrades
// accuracy without flattering the range estimate.
func Default() *Observation {
	return &Observation{
		TemperatureC: 15.0,
		WindSpeedMS:  3.0,
		Description:  "unknown",
		Icon:         "01d",
		FetchedAt:    time.Now(),
	}
}

// Provider defines the interface for weather data providers.
type Provider interface {
	// Current fetches current conditions for a location.
	Current(ctx context.Context, lat, lon float64) (*Observation, error)

	// Name returns the provider name for logging.
	Name() string
}
