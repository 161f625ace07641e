// Package band converts available battery energy and a consumption rate into
// a maximum driving distance per energy band.
package band

import (
	"errors"
	"fmt"
	"math"
)

// Planner errors.
var (
	// ErrInvalidConsumption indicates a non-positive consumption rate,
	// which would produce an infinite or negative distance.
	ErrInvalidConsumption = errors.New("consumption rate must be positive")
)

// Band is a hypothetical battery-fraction checkpoint used to render nested
// range rings. Fractions are fixed and independent of current charge.
type Band struct {
	// Label is the short identifier shown on the map legend, e.g. "75%".
	Label string `json:"label"`

	// Fraction of full usable capacity this band represents, in (0, 1].
	Fraction float64 `json:"fraction"`

	// Color is the render color as a hex string.
	Color string `json:"color"`

	// DisplayName is an optional long name for the renderer.
	DisplayName string `json:"display_name,omitempty"`
}

// DefaultBands returns the four standard bands in descending order.
func DefaultBands() []Band {
	return []Band{
		{Label: "100%", Fraction: 1.00, Color: "#00e5ff", DisplayName: "Full charge"},
		{Label: "75%", Fraction: 0.75, Color: "#00b0ff", DisplayName: "Three quarters"},
		{Label: "50%", Fraction: 0.50, Color: "#2979ff", DisplayName: "Half charge"},
		{Label: "25%", Fraction: 0.25, Color: "#7c4dff", DisplayName: "Quarter charge"},
	}
}

// Validate checks that bands are well-formed and strictly decreasing.
func Validate(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("at least one energy band is required")
	}
	prev := math.Inf(1)
	for _, b := range bands {
		if b.Fraction <= 0 || b.Fraction > 1 {
			return fmt.Errorf("band %q: fraction must be in (0, 1], got %.2f", b.Label, b.Fraction)
		}
		if b.Fraction >= prev {
			return fmt.Errorf("band fractions must be strictly decreasing, %q breaks the order", b.Label)
		}
		prev = b.Fraction
	}
	return nil
}

// Plan is the maximum traversable distance for one band.
type Plan struct {
	Band       Band
	DistanceKm float64
}

// Battery describes the energy actually on board for a run.
type Battery struct {
	// CapacityKWh is the usable capacity when new.
	CapacityKWh float64

	// SoC is the current state of charge as a fraction in [0, 1].
	SoC float64

	// SoH is the state of health as a fraction in (0, 1].
	SoH float64

	// ReserveSoC is held back from planning so the estimate never reaches
	// an empty pack.
	ReserveSoC float64
}

// PlanDistances computes the maximum distance per band, preserving band
// order. Each band draws at most min(band fraction, usable SoC) of capacity:
// a band above the current charge degenerates to the actual available energy,
// so all bands collapse toward the same distance at low SoC.
func PlanDistances(bands []Band, bat Battery, consumptionKWhPerKm float64) ([]Plan, error) {
	if consumptionKWhPerKm <= 0 {
		return nil, fmt.Errorf("%w: got %.4f kWh/km", ErrInvalidConsumption, consumptionKWhPerKm)
	}
	if bat.CapacityKWh <= 0 {
		return nil, fmt.Errorf("battery capacity must be positive, got %.1f", bat.CapacityKWh)
	}
	if bat.SoH <= 0 || bat.SoH > 1 {
		return nil, fmt.Errorf("state of health must be in (0, 1], got %.2f", bat.SoH)
	}
	if bat.SoC < 0 || bat.SoC > 1 {
		return nil, fmt.Errorf("state of charge must be in [0, 1], got %.2f", bat.SoC)
	}

	usableSoC := math.Max(0, bat.SoC-bat.ReserveSoC)

	plans := make([]Plan, 0, len(bands))
	for _, b := range bands {
		availableKWh := bat.CapacityKWh * bat.SoH * math.Min(b.Fraction, usableSoC)
		plans = append(plans, Plan{
			Band:       b,
			DistanceKm: availableKWh / consumptionKWhPerKm,
		})
	}
	return plans, nil
}
