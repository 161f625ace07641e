package energy

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParameters() Parameters {
	return Parameters{
		BatteryCapacityKWh: 94,
		MassKg:             2350,
		DragCoefficient:    0.27,
		FrontalAreaM2:      2.54,
		RollingResistance:  0.010,
		AuxPowerKW:         0.3,
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	model, err := NewModel(testParameters(), nil, zerolog.Nop())
	require.NoError(t, err)
	return model
}

func TestNewModel(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Parameters) {}},
		{name: "zero capacity", mutate: func(p *Parameters) { p.BatteryCapacityKWh = 0 }, wantErr: true},
		{name: "zero mass", mutate: func(p *Parameters) { p.MassKg = 0 }, wantErr: true},
		{name: "negative drag", mutate: func(p *Parameters) { p.DragCoefficient = -0.1 }, wantErr: true},
		{name: "efficiency above one", mutate: func(p *Parameters) { p.DrivetrainEfficiency = 1.5 }, wantErr: true},
		{name: "reserve of one", mutate: func(p *Parameters) { p.ReserveSoC = 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParameters()
			tt.mutate(&params)

			model, err := NewModel(params, nil, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, 0.90, model.Parameters().DrivetrainEfficiency, 1e-9)
			assert.InDelta(t, 1.225, model.Parameters().AirDensityKgM3, 1e-9)
		})
	}
}

func TestNewModelRejectsBadProfiles(t *testing.T) {
	_, err := NewModel(testParameters(), []Profile{
		{Name: "city", SpeedKmh: 35, Weight: 0.5},
		{Name: "motorway", SpeedKmh: 100, Weight: 0.4},
	}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestConsumptionAtIsPositive(t *testing.T) {
	model := newTestModel(t)

	for _, speed := range []float64{5, 35, 60, 100, 130} {
		for _, cond := range []Conditions{
			{AmbientC: 20},
			{AmbientC: -25, WindSpeedMS: 20},
			{AmbientC: 40, WindSpeedMS: 0},
		} {
			got := model.ConsumptionAt(speed, cond)
			assert.Greater(t, got, 0.0, "speed=%.0f cond=%+v", speed, cond)
		}
	}
}

func TestConsumptionIncreasesWithWind(t *testing.T) {
	model := newTestModel(t)

	calm := model.ConsumptionAt(100, Conditions{AmbientC: 20, WindSpeedMS: 0})
	breezy := model.ConsumptionAt(100, Conditions{AmbientC: 20, WindSpeedMS: 8})
	storm := model.ConsumptionAt(100, Conditions{AmbientC: 20, WindSpeedMS: 20})

	assert.Greater(t, breezy, calm)
	assert.Greater(t, storm, breezy)
}

func TestNegativeWindDoesNotReduceConsumption(t *testing.T) {
	model := newTestModel(t)

	calm := model.ConsumptionAt(100, Conditions{AmbientC: 20, WindSpeedMS: 0})
	tailwind := model.ConsumptionAt(100, Conditions{AmbientC: 20, WindSpeedMS: -10})

	assert.InDelta(t, calm, tailwind, 1e-12)
}

func TestConsumptionRisesAwayFromComfortTemperature(t *testing.T) {
	model := newTestModel(t)

	comfort := model.ConsumptionAt(60, Conditions{AmbientC: 20})
	cold := model.ConsumptionAt(60, Conditions{AmbientC: 0})
	colder := model.ConsumptionAt(60, Conditions{AmbientC: -10})
	hot := model.ConsumptionAt(60, Conditions{AmbientC: 35})

	assert.Greater(t, cold, comfort)
	assert.Greater(t, colder, cold)
	assert.Greater(t, hot, comfort)
}

func TestHVACPowerIsCapped(t *testing.T) {
	var h HVACModel
	h.SetDefaults()

	assert.InDelta(t, h.MaxKW, h.PowerKW(-60), 1e-9)
	assert.InDelta(t, h.MaxKW, h.PowerKW(80), 1e-9)
	assert.Less(t, h.PowerKW(20), 1.0)
}

func TestLowSpeedPowerFloor(t *testing.T) {
	params := testParameters()
	params.AuxPowerKW = 0
	model, err := NewModel(params, nil, zerolog.Nop())
	require.NoError(t, err)

	// At walking pace the 0.5 kW floor dominates: 0.5 kW / 2 km/h.
	got := model.ConsumptionAt(2, Conditions{AmbientC: 20, WindSpeedMS: 0})
	assert.InDelta(t, minTotalPowerKW/2, got, 1e-9)
}

func TestBlendedConsumptionMatchesWeights(t *testing.T) {
	model := newTestModel(t)
	cond := Conditions{AmbientC: 10, WindSpeedMS: 4}

	want := 0.0
	for _, p := range model.Profiles() {
		want += p.Weight * model.ConsumptionAt(p.SpeedKmh, cond)
	}

	assert.InDelta(t, want, model.BlendedConsumption(cond), 1e-12)
}

func TestBlendedConsumptionIsDeterministic(t *testing.T) {
	model := newTestModel(t)
	cond := Conditions{AmbientC: -5, WindSpeedMS: 12}

	first := model.BlendedConsumption(cond)
	second := model.BlendedConsumption(cond)
	assert.Equal(t, first, second)
}
