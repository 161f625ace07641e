package energy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Conditions is the environmental state the model evaluates under. It is
// treated as constant for a whole estimation run.
type Conditions struct {
	// AmbientC is the outside temperature in Celsius.
	AmbientC float64

	// WindSpeedMS is the wind speed magnitude in m/s. True heading is
	// unknown because reachability is evaluated omnidirectionally, so the
	// magnitude is applied as a worst-case headwind.
	WindSpeedMS float64
}

// Model computes energy consumption per kilometre for the configured vehicle.
// It is pure: construct once from validated parameters, then evaluate freely.
type Model struct {
	params   Parameters
	profiles []Profile
	weights  []float64
	logger   zerolog.Logger
}

// NewModel validates the parameters and profiles and returns a ready model.
func NewModel(params Parameters, profiles []Profile, logger zerolog.Logger) (*Model, error) {
	params.SetDefaults()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("vehicle parameters: %w", err)
	}
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	if err := ValidateProfiles(profiles); err != nil {
		return nil, fmt.Errorf("driving profiles: %w", err)
	}

	weights := make([]float64, len(profiles))
	for i, p := range profiles {
		weights[i] = p.Weight
	}

	return &Model{
		params:   params,
		profiles: profiles,
		weights:  weights,
		logger:   logger,
	}, nil
}

// Parameters returns the immutable vehicle configuration the model was built with.
func (m *Model) Parameters() Parameters {
	return m.params
}

// Profiles returns the driving profile blend.
func (m *Model) Profiles() []Profile {
	return m.profiles
}

// ConsumptionAt returns consumption in kWh/km at a single steady speed under
// the given conditions. Speed must be positive; the model was validated at
// construction so the result is always strictly positive.
func (m *Model) ConsumptionAt(speedKmh float64, cond Conditions) float64 {
	vMS := speedKmh / 3.6

	// Worst-case headwind: relative airspeed never below zero.
	relMS := math.Max(0, vMS+math.Max(0, cond.WindSpeedMS))

	fAeroN := 0.5 * m.params.AirDensityKgM3 * m.params.DragCoefficient * m.params.FrontalAreaM2 * relMS * relMS
	fRollN := m.params.RollingResistance * m.params.MassKg * gravityMS2
	// Gradient term held at net zero: regenerative recovery on descents is
	// assumed to offset climbs over a mixed-road sample.

	mechKW := (fAeroN + fRollN) * vMS / 1000.0
	elecKW := mechKW / m.params.DrivetrainEfficiency
	hvacKW := m.params.HVAC.PowerKW(cond.AmbientC)

	totalKW := math.Max(elecKW+hvacKW+m.params.AuxPowerKW, minTotalPowerKW)
	return totalKW / speedKmh
}

// BlendedConsumption returns the weighted consumption across all driving
// profiles, in kWh/km.
func (m *Model) BlendedConsumption(cond Conditions) float64 {
	perProfile := make([]float64, len(m.profiles))
	for i, p := range m.profiles {
		perProfile[i] = m.ConsumptionAt(p.SpeedKmh, cond)
	}
	blended := floats.Dot(m.weights, perProfile)

	m.logger.Debug().
		Float64("ambient_c", cond.AmbientC).
		Float64("wind_ms", cond.WindSpeedMS).
		Floats64("per_profile_kwh_km", perProfile).
		Float64("blended_kwh_km", blended).
		Msg("blended consumption computed")

	return blended
}
