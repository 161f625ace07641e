// Package mqtt publishes run summaries to an MQTT broker so Home Assistant
// dashboards can track the computed range alongside the vehicle's own sensors.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/estimator"
)

// Config holds MQTT publisher settings.
type Config struct {
	// Broker is the MQTT broker URL, e.g. tcp://localhost:1883.
	Broker string `json:"broker"`

	// ClientID identifies this publisher to the broker.
	ClientID string `json:"client_id"`

	// Username and Password are optional broker credentials.
	Username string `json:"username"`
	Password string `json:"password"`

	// TopicPrefix is the base topic. Default: "rangecast".
	TopicPrefix string `json:"topic_prefix"`

	// QoS for published messages. Default: 1.
	QoS byte `json:"qos"`

	// DiscoveryPrefix is the Home Assistant discovery prefix. Default:
	// "homeassistant". Empty disables discovery announcements.
	DiscoveryPrefix string `json:"discovery_prefix"`
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "rangecast"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "rangecast"
	}
	if c.QoS == 0 {
		c.QoS = 1
	}
}

// pahoClient is the subset of the paho client the publisher uses.
type pahoClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher announces run results over MQTT with retained state topics and
// Home Assistant discovery messages.
type Publisher struct {
	client pahoClient
	config Config
	logger zerolog.Logger
}

// NewPublisher connects to the broker and announces discovery topics.
func NewPublisher(cfg Config, logger zerolog.Logger) (*Publisher, error) {
	cfg.SetDefaults()

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker: %w", token.Error())
	}

	p := &Publisher{client: client, config: cfg, logger: logger}
	if err := p.publishDiscovery(); err != nil {
		logger.Warn().Err(err).Msg("discovery announcement failed")
	}
	return p, nil
}

// newPublisherWithClient is used by tests to inject a fake client.
func newPublisherWithClient(client pahoClient, cfg Config, logger zerolog.Logger) *Publisher {
	cfg.SetDefaults()
	return &Publisher{client: client, config: cfg, logger: logger}
}

// runSummary is the JSON state payload.
type runSummary struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	MaxRangeKm    float64   `json:"max_range_km"`
	SoCPct        float64   `json:"soc_pct"`
	TempC         float64   `json:"temp_c"`
	WindMS        float64   `json:"wind_ms"`
	Polygons      int       `json:"polygons"`
	Partial       bool      `json:"partial"`
	WeatherSource string    `json:"weather_source"`
}

// PublishRun publishes the run summary on retained state topics.
func (p *Publisher) PublishRun(result *estimator.RunResult) error {
	summary := runSummary{
		RunID:         result.RunID,
		Timestamp:     result.Timestamp,
		MaxRangeKm:    result.MaxRangeKm(),
		SoCPct:        result.Vehicle.SoC * 100,
		TempC:         result.Weather.TemperatureC,
		WindMS:        result.Weather.WindSpeedMS,
		Polygons:      result.PolygonCount(),
		Partial:       result.Partial,
		WeatherSource: result.WeatherSource,
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	stateTopic := p.config.TopicPrefix + "/state"
	if token := p.client.Publish(stateTopic, p.config.QoS, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing state: %w", token.Error())
	}

	rangeTopic := p.config.TopicPrefix + "/range_km"
	rangePayload := []byte(fmt.Sprintf("%.1f", result.MaxRangeKm()))
	if token := p.client.Publish(rangeTopic, p.config.QoS, true, rangePayload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing range: %w", token.Error())
	}

	p.logger.Debug().
		Str("topic", stateTopic).
		Float64("max_range_km", summary.MaxRangeKm).
		Msg("run summary published")
	return nil
}

// discoveryConfig is the Home Assistant MQTT discovery payload.
type discoveryConfig struct {
	Name              string `json:"name"`
	UniqueID          string `json:"unique_id"`
	StateTopic        string `json:"state_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	ValueTemplate     string `json:"value_template,omitempty"`
	Icon              string `json:"icon,omitempty"`
}

// publishDiscovery announces the range sensor so Home Assistant picks it up
// without manual configuration.
func (p *Publisher) publishDiscovery() error {
	if p.config.DiscoveryPrefix == "" {
		return nil
	}

	cfg := discoveryConfig{
		Name:              "Estimated range",
		UniqueID:          p.config.ClientID + "_range_km",
		StateTopic:        p.config.TopicPrefix + "/range_km",
		UnitOfMeasurement: "km",
		Icon:              "mdi:map-marker-radius",
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/sensor/%s/range_km/config", p.config.DiscoveryPrefix, p.config.ClientID)
	if token := p.client.Publish(topic, p.config.QoS, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
