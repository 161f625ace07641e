// Package homeassistant reads vehicle telemetry from a Home Assistant
// instance via its REST API.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/provider/resilience"
	"github.com/rangecast/rangecast/internal/vehicle"
)

const (
	// ProviderName identifies this telemetry provider.
	ProviderName = "homeassistant"

	// DefaultBaseURL assumes Home Assistant on the local host.
	DefaultBaseURL = "http://localhost:8123"

	// DefaultTimeout is the default per-entity request timeout.
	DefaultTimeout = 10 * time.Second
)

// Entities maps telemetry points to Home Assistant entity IDs.
type Entities struct {
	// SoC is the battery charge level sensor, reporting percent.
	SoC string `json:"soc"`

	// SoH is the battery health sensor, reporting percent. Optional: when
	// empty, state of health defaults to 100%.
	SoH string `json:"soh"`

	// ChargingStatus is the charging status sensor.
	ChargingStatus string `json:"charging_status"`

	// Odometer is the odometer sensor in kilometres.
	Odometer string `json:"odometer"`

	// OEMRange is the manufacturer's own range estimate sensor.
	OEMRange string `json:"oem_range"`

	// Trackers are device_tracker entities tried in order for a GPS fix.
	Trackers []string `json:"trackers"`
}

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Home Assistant client.
type ClientConfig struct {
	// BaseURL of the Home Assistant instance (optional).
	BaseURL string

	// Token is a long-lived access token (required).
	Token string

	// Entities to read (required: at least SoC).
	Entities Entities

	// HTTPClient to use (optional). If nil, a resilient client with
	// defaults is created.
	HTTPClient HTTPDoer

	// Timeout per entity read (optional).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client reads entity states from Home Assistant.
type Client struct {
	baseURL    string
	token      string
	entities   Entities
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Home Assistant client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		entities:   cfg.Entities,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Read fetches the telemetry snapshot. Sensors reporting "unknown" or
// "unavailable" count as missing; the caller decides which ones are fatal.
func (c *Client) Read(ctx context.Context) (*vehicle.Reading, error) {
	reading := &vehicle.Reading{}

	if soc := c.numericState(ctx, c.entities.SoC); soc != nil {
		frac := *soc / 100.0
		reading.SoC = &frac
	}
	if c.entities.SoH != "" {
		if soh := c.numericState(ctx, c.entities.SoH); soh != nil {
			frac := *soh / 100.0
			reading.SoH = &frac
		}
	} else {
		full := 1.0
		reading.SoH = &full
	}
	if status := c.textState(ctx, c.entities.ChargingStatus); status != "" {
		reading.ChargingStatus = status
	}
	reading.OdometerKm = c.numericState(ctx, c.entities.Odometer)
	reading.OEMRangeKm = c.numericState(ctx, c.entities.OEMRange)

	for _, tracker := range c.entities.Trackers {
		lat, lon, ok := c.trackerPosition(ctx, tracker)
		if ok {
			reading.Lat = &lat
			reading.Lon = &lon
			break
		}
	}

	return reading, nil
}

// entityState is the Home Assistant /api/states/<entity> response.
type entityState struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// getState fetches a single entity. Returns nil when the entity is missing,
// unreadable, or reports an unavailable state.
func (c *Client) getState(ctx context.Context, entityID string) *entityState {
	if entityID == "" {
		return nil
	}

	url := fmt.Sprintf("%s/api/states/%s", c.baseURL, entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("entity_id", entityID).Msg("entity read failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("entity_id", entityID).
			Msg("entity read returned non-OK status")
		return nil
	}

	var state entityState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		c.logger.Warn().Err(err).Str("entity_id", entityID).Msg("entity decode failed")
		return nil
	}

	if state.State == "" || state.State == "unknown" || state.State == "unavailable" {
		return nil
	}
	return &state
}

func (c *Client) textState(ctx context.Context, entityID string) string {
	state := c.getState(ctx, entityID)
	if state == nil {
		return ""
	}
	return state.State
}

func (c *Client) numericState(ctx context.Context, entityID string) *float64 {
	state := c.getState(ctx, entityID)
	if state == nil {
		return nil
	}
	v, err := strconv.ParseFloat(state.State, 64)
	if err != nil {
		c.logger.Warn().
			Str("entity_id", entityID).
			Str("state", state.State).
			Msg("entity state is not numeric")
		return nil
	}
	return &v
}

// trackerPosition extracts a GPS fix from a device_tracker entity. Zone
// states like "home"/"not_home" carry no usable coordinates in some
// integrations, so the attributes decide.
func (c *Client) trackerPosition(ctx context.Context, entityID string) (lat, lon float64, ok bool) {
	state := c.getState(ctx, entityID)
	if state == nil {
		return 0, 0, false
	}

	lat, latOK := attrFloat(state.Attributes, "latitude")
	lon, lonOK := attrFloat(state.Attributes, "longitude")
	if !latOK || !lonOK {
		return 0, 0, false
	}

	c.logger.Debug().
		Str("entity_id", entityID).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("GPS fix from tracker")
	return lat, lon, true
}

func attrFloat(attrs map[string]interface{}, key string) (float64, bool) {
	raw, ok := attrs[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
