package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
vehicle:
  battery_capacity_kwh: 94
  mass_kg: 2350
  drag_coefficient: 0.27
  frontal_area_m2: 2.54
  rolling_resistance: 0.010
home_assistant:
  token: secret-token
  entities:
    soc: sensor.car_battery
weather:
  api_key: owm-key
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Server.RateLimit)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Interval)
	assert.Equal(t, 3*time.Minute, cfg.Schedule.RunTimeout)
	require.NotNil(t, cfg.Schedule.RunOnStart)
	assert.True(t, *cfg.Schedule.RunOnStart)

	assert.InDelta(t, 0.90, cfg.Vehicle.DrivetrainEfficiency, 1e-9)
	assert.Len(t, cfg.Profiles, 3)
	assert.Len(t, cfg.Bands, 4)

	assert.Equal(t, "http://localhost:8002", cfg.Valhalla.URL)
	assert.Equal(t, "auto", cfg.Valhalla.Costing)
	assert.InDelta(t, 400, cfg.Valhalla.MaxDistanceKm, 1e-9)

	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, 50, cfg.History.Keep)
	assert.Equal(t, "./out", cfg.Output.Dir)
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML+`
server:
  addr: ":9090"
schedule:
  interval: 15m
  run_on_start: false
bands:
  - label: "100%"
    fraction: 1.0
    color: "#ffffff"
  - label: "50%"
    fraction: 0.5
    color: "#000000"
valhalla:
  url: http://valhalla:8002
  max_distance_km: 250
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.Interval)
	require.NotNil(t, cfg.Schedule.RunOnStart)
	assert.False(t, *cfg.Schedule.RunOnStart)
	require.Len(t, cfg.Bands, 2)
	assert.Equal(t, "http://valhalla:8002", cfg.Valhalla.URL)
	assert.InDelta(t, 250, cfg.Valhalla.MaxDistanceKm, 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RANGECAST_WEATHER__API_KEY", "from-env")
	t.Setenv("RANGECAST_SERVER__ADDR", ":7070")

	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Weather.APIKey)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadJSONConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{
		"vehicle": {
			"battery_capacity_kwh": 94,
			"mass_kg": 2350,
			"drag_coefficient": 0.27,
			"frontal_area_m2": 2.54,
			"rolling_resistance": 0.010
		},
		"home_assistant": {
			"token": "secret",
			"entities": {"soc": "sensor.car_battery"}
		}
	}`))
	require.NoError(t, err)
	assert.InDelta(t, 94, cfg.Vehicle.BatteryCapacityKWh, 1e-9)
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing token",
			yaml: `
vehicle:
  battery_capacity_kwh: 94
  mass_kg: 2350
  drag_coefficient: 0.27
  frontal_area_m2: 2.54
  rolling_resistance: 0.010
home_assistant:
  entities:
    soc: sensor.car_battery
`,
			wantErr: "token is required",
		},
		{
			name: "missing soc entity",
			yaml: `
vehicle:
  battery_capacity_kwh: 94
  mass_kg: 2350
  drag_coefficient: 0.27
  frontal_area_m2: 2.54
  rolling_resistance: 0.010
home_assistant:
  token: secret
`,
			wantErr: "entities.soc is required",
		},
		{
			name: "invalid vehicle",
			yaml: `
vehicle:
  battery_capacity_kwh: 94
  drag_coefficient: 0.27
  frontal_area_m2: 2.54
  rolling_resistance: 0.010
home_assistant:
  token: secret
  entities:
    soc: sensor.car_battery
`,
			wantErr: "vehicle",
		},
		{
			name:    "postgres without dsn",
			yaml:    minimalYAML + `history: {backend: postgres}`,
			wantErr: "dsn is required",
		},
		{
			name:    "unknown history backend",
			yaml:    minimalYAML + `history: {backend: cassandra}`,
			wantErr: "unknown backend",
		},
		{
			name:    "mqtt enabled without broker",
			yaml:    minimalYAML + `mqtt: {enabled: true}`,
			wantErr: "broker is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
