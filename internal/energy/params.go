// Package energy implements the physics-based consumption model that turns
// vehicle and environmental state into a blended kWh/km figure.
package energy

import (
	"fmt"
	"math"
)

// Physical constants.
const (
	gravityMS2 = 9.81

	// minTotalPowerKW floors the modelled draw so consumption never
	// collapses toward zero at very low load.
	minTotalPowerKW = 0.5
)

// Parameters describes the fixed physical configuration of the vehicle.
// Loaded once at startup and never mutated.
type Parameters struct {
	// BatteryCapacityKWh is the usable battery capacity when new.
	BatteryCapacityKWh float64 `json:"battery_capacity_kwh"`

	// MassKg is the vehicle curb mass plus a nominal payload.
	MassKg float64 `json:"mass_kg"`

	// DragCoefficient is the aerodynamic drag coefficient (Cd).
	DragCoefficient float64 `json:"drag_coefficient"`

	// FrontalAreaM2 is the projected frontal area in square metres.
	FrontalAreaM2 float64 `json:"frontal_area_m2"`

	// RollingResistance is the rolling resistance coefficient (Crr).
	RollingResistance float64 `json:"rolling_resistance"`

	// AirDensityKgM3 is the assumed air density. Default: 1.225 (sea level, 15C).
	AirDensityKgM3 float64 `json:"air_density_kg_m3"`

	// DrivetrainEfficiency converts mechanical to electrical power. Default: 0.90.
	DrivetrainEfficiency float64 `json:"drivetrain_efficiency"`

	// AuxPowerKW is the constant auxiliary electrical draw (12V systems,
	// pumps, infotainment), independent of speed.
	AuxPowerKW float64 `json:"aux_power_kw"`

	// ReserveSoC is the state-of-charge fraction held back from range
	// calculations so the estimate never plans down to an empty pack.
	ReserveSoC float64 `json:"reserve_soc"`

	// HVAC models the cabin climate load as a function of ambient temperature.
	HVAC HVACModel `json:"hvac"`
}

// SetDefaults fills zero-valued fields that have sensible defaults.
func (p *Parameters) SetDefaults() {
	if p.AirDensityKgM3 == 0 {
		p.AirDensityKgM3 = 1.225
	}
	if p.DrivetrainEfficiency == 0 {
		p.DrivetrainEfficiency = 0.90
	}
	p.HVAC.SetDefaults()
}

// Validate checks the parameters describe a physically plausible vehicle.
func (p Parameters) Validate() error {
	if p.BatteryCapacityKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive, got %.1f", p.BatteryCapacityKWh)
	}
	if p.MassKg <= 0 {
		return fmt.Errorf("vehicle mass must be positive, got %.1f", p.MassKg)
	}
	if p.DragCoefficient <= 0 || p.FrontalAreaM2 <= 0 {
		return fmt.Errorf("drag coefficient and frontal area must be positive")
	}
	if p.RollingResistance <= 0 {
		return fmt.Errorf("rolling resistance must be positive, got %.4f", p.RollingResistance)
	}
	if p.DrivetrainEfficiency <= 0 || p.DrivetrainEfficiency > 1 {
		return fmt.Errorf("drivetrain efficiency must be in (0, 1], got %.2f", p.DrivetrainEfficiency)
	}
	if p.AuxPowerKW < 0 {
		return fmt.Errorf("auxiliary power must not be negative, got %.2f", p.AuxPowerKW)
	}
	if p.ReserveSoC < 0 || p.ReserveSoC >= 1 {
		return fmt.Errorf("reserve SoC must be in [0, 1), got %.2f", p.ReserveSoC)
	}
	return p.HVAC.Validate()
}

// HVACModel approximates cabin climate load from ambient temperature: near
// zero inside the comfort band, rising linearly toward both extremes, capped
// at the compressor/heater maximum.
type HVACModel struct {
	// ComfortTempC is the ambient temperature needing no climate power.
	// Default: 20.
	ComfortTempC float64 `json:"comfort_temp_c"`

	// IdleKW is the baseline ventilation draw. Default: 0.25.
	IdleKW float64 `json:"idle_kw"`

	// HeatingKWPerC is added per degree below the comfort point. Default: 0.14.
	HeatingKWPerC float64 `json:"heating_kw_per_c"`

	// CoolingKWPerC is added per degree above the comfort point. Default: 0.30.
	CoolingKWPerC float64 `json:"cooling_kw_per_c"`

	// MaxKW caps the total climate load. Default: 5.5.
	MaxKW float64 `json:"max_kw"`
}

// SetDefaults fills zero-valued fields. The defaults reproduce roughly 5 kW
// of heating at -15C and 4.5 kW of cooling at 35C.
func (h *HVACModel) SetDefaults() {
	if h.ComfortTempC == 0 {
		h.ComfortTempC = 20
	}
	if h.IdleKW == 0 {
		h.IdleKW = 0.25
	}
	if h.HeatingKWPerC == 0 {
		h.HeatingKWPerC = 0.14
	}
	if h.CoolingKWPerC == 0 {
		h.CoolingKWPerC = 0.30
	}
	if h.MaxKW == 0 {
		h.MaxKW = 5.5
	}
}

// Validate checks the model coefficients.
func (h HVACModel) Validate() error {
	if h.IdleKW < 0 || h.HeatingKWPerC < 0 || h.CoolingKWPerC < 0 {
		return fmt.Errorf("hvac coefficients must not be negative")
	}
	if h.MaxKW <= 0 {
		return fmt.Errorf("hvac max power must be positive, got %.2f", h.MaxKW)
	}
	return nil
}

// PowerKW returns the climate load at the given ambient temperature.
func (h HVACModel) PowerKW(ambientC float64) float64 {
	cold := math.Max(0, h.ComfortTempC-ambientC)
	hot := math.Max(0, ambientC-h.ComfortTempC)
	return math.Min(h.MaxKW, h.IdleKW+h.HeatingKWPerC*cold+h.CoolingKWPerC*hot)
}

// Profile is a fixed speed/weight pair representing a road category used to
// blend consumption across driving conditions.
type Profile struct {
	Name     string  `json:"name"`
	SpeedKmh float64 `json:"speed_kmh"`
	Weight   float64 `json:"weight"`
}

// DefaultProfiles returns the city/suburban/motorway blend.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "city", SpeedKmh: 35, Weight: 0.40},
		{Name: "suburban", SpeedKmh: 60, Weight: 0.40},
		{Name: "motorway", SpeedKmh: 100, Weight: 0.20},
	}
}

// ValidateProfiles checks each profile and that the weights sum to 1.
func ValidateProfiles(profiles []Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("at least one driving profile is required")
	}
	sum := 0.0
	for _, p := range profiles {
		if p.SpeedKmh <= 0 {
			return fmt.Errorf("profile %q: speed must be positive, got %.1f", p.Name, p.SpeedKmh)
		}
		if p.Weight <= 0 {
			return fmt.Errorf("profile %q: weight must be positive, got %.2f", p.Name, p.Weight)
		}
		sum += p.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("profile weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}
