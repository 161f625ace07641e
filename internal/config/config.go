// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rangecast/rangecast/internal/band"
	"github.com/rangecast/rangecast/internal/energy"
	"github.com/rangecast/rangecast/internal/publish/mqtt"
	"github.com/rangecast/rangecast/internal/vehicle/homeassistant"
)

// Config is the complete service configuration.
type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	Server        ServerConfig        `json:"server"`
	Schedule      ScheduleConfig      `json:"schedule"`
	Vehicle       energy.Parameters   `json:"vehicle"`
	Profiles      []energy.Profile    `json:"profiles"`
	Bands         []band.Band         `json:"bands"`
	HomeAssistant HomeAssistantConfig `json:"home_assistant"`
	Weather       WeatherConfig       `json:"weather"`
	Valhalla      ValhallaConfig      `json:"valhalla"`
	Output        OutputConfig        `json:"output"`
	History       HistoryConfig       `json:"history"`
	MQTT          MQTTConfig          `json:"mqtt"`
	Telemetry     TelemetryConfig     `json:"telemetry"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is a zerolog level name. Default: "info".
	Level string `json:"level"`
	// Pretty enables human-readable console output instead of JSON.
	Pretty bool `json:"pretty"`
}

// ServerConfig configures the read-only HTTP surface.
type ServerConfig struct {
	// Addr to listen on. Default: ":8080".
	Addr string `json:"addr"`
	// RateLimit is requests per minute per client IP. Default: 60.
	RateLimit int `json:"rate_limit"`
}

// ScheduleConfig controls the estimation loop.
type ScheduleConfig struct {
	// Interval between runs. Default: 30m.
	Interval time.Duration `json:"interval"`
	// RunTimeout bounds one run end to end. Default: 3m.
	RunTimeout time.Duration `json:"run_timeout"`
	// RunOnStart triggers a run immediately at startup. Default: true
	// (set via SetDefaults; explicit false in the file wins).
	RunOnStart *bool `json:"run_on_start"`
}

// HomeAssistantConfig configures the vehicle telemetry source.
type HomeAssistantConfig struct {
	URL      string                 `json:"url"`
	Token    string                 `json:"token"`
	Entities homeassistant.Entities `json:"entities"`
	// HomeLat/HomeLon are the fallback position when there is no GPS fix.
	HomeLat float64       `json:"home_lat"`
	HomeLon float64       `json:"home_lon"`
	Timeout time.Duration `json:"timeout"`
}

// WeatherConfig configures the environmental provider.
type WeatherConfig struct {
	// APIKey for OpenWeatherMap. Empty disables the provider; runs then
	// use the documented default conditions.
	APIKey  string        `json:"api_key"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// ValhallaConfig configures the routing engine.
type ValhallaConfig struct {
	URL           string        `json:"url"`
	Costing       string        `json:"costing"`
	MaxDistanceKm float64       `json:"max_distance_km"`
	Timeout       time.Duration `json:"timeout"`
}

// OutputConfig configures the renderer artifacts.
type OutputConfig struct {
	// Dir receives range_contour.json and range_metadata.json.
	// Default: "./out".
	Dir string `json:"dir"`
}

// HistoryConfig configures run storage.
type HistoryConfig struct {
	// Backend is "memory" or "postgres". Default: "memory".
	Backend string `json:"backend"`
	// DSN is the Postgres connection string when Backend is "postgres".
	DSN string `json:"dsn"`
	// Keep is how many runs to retain. Default: 50.
	Keep int `json:"keep"`
}

// MQTTConfig wraps the publisher settings with an enable flag.
type MQTTConfig struct {
	Enabled     bool `json:"enabled"`
	mqtt.Config `json:",squash"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint"`
	Environment  string `json:"environment"`
}

// Load reads the configuration file, applies RANGECAST_-prefixed environment
// overrides (RANGECAST_WEATHER__API_KEY -> weather.api_key), fills defaults
// and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if err := k.Load(env.Provider("RANGECAST_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "rangecast_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills zero-valued fields across all sections.
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 60
	}
	if c.Schedule.Interval == 0 {
		c.Schedule.Interval = 30 * time.Minute
	}
	if c.Schedule.RunTimeout == 0 {
		c.Schedule.RunTimeout = 3 * time.Minute
	}
	if c.Schedule.RunOnStart == nil {
		t := true
		c.Schedule.RunOnStart = &t
	}
	c.Vehicle.SetDefaults()
	if len(c.Profiles) == 0 {
		c.Profiles = energy.DefaultProfiles()
	}
	if len(c.Bands) == 0 {
		c.Bands = band.DefaultBands()
	}
	if c.HomeAssistant.URL == "" {
		c.HomeAssistant.URL = homeassistant.DefaultBaseURL
	}
	if c.HomeAssistant.Timeout == 0 {
		c.HomeAssistant.Timeout = 10 * time.Second
	}
	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = 10 * time.Second
	}
	if c.Valhalla.URL == "" {
		c.Valhalla.URL = "http://localhost:8002"
	}
	if c.Valhalla.Costing == "" {
		c.Valhalla.Costing = "auto"
	}
	if c.Valhalla.MaxDistanceKm == 0 {
		c.Valhalla.MaxDistanceKm = 400
	}
	if c.Valhalla.Timeout == 0 {
		c.Valhalla.Timeout = 120 * time.Second
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./out"
	}
	if c.History.Backend == "" {
		c.History.Backend = "memory"
	}
	if c.History.Keep == 0 {
		c.History.Keep = 50
	}
	c.MQTT.Config.SetDefaults()
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = "development"
	}
	if c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = "localhost:4317"
	}
}

// Validate checks cross-field constraints the constructors cannot.
func (c *Config) Validate() error {
	if err := c.Vehicle.Validate(); err != nil {
		return fmt.Errorf("vehicle: %w", err)
	}
	if err := energy.ValidateProfiles(c.Profiles); err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	if err := band.Validate(c.Bands); err != nil {
		return fmt.Errorf("bands: %w", err)
	}
	if c.HomeAssistant.Token == "" {
		return fmt.Errorf("home_assistant: token is required")
	}
	if c.HomeAssistant.Entities.SoC == "" {
		return fmt.Errorf("home_assistant: entities.soc is required")
	}
	switch c.History.Backend {
	case "memory":
	case "postgres":
		if c.History.DSN == "" {
			return fmt.Errorf("history: dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history: unknown backend %q", c.History.Backend)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt: broker is required when enabled")
	}
	return nil
}
