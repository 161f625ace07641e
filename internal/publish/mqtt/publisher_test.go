package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangecast/rangecast/internal/band"
	"github.com/rangecast/rangecast/internal/estimator"
	"github.com/rangecast/rangecast/internal/isoline"
	"github.com/rangecast/rangecast/internal/vehicle"
	"github.com/rangecast/rangecast/internal/weather"
)

// fakeToken is a completed paho token.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool { return true }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error { return t.err }

// fakeClient records published messages.
type fakeClient struct {
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.published = append(c.published, publishedMessage{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload.([]byte),
	})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Disconnect(uint) {}

func testRun() *estimator.RunResult {
	geom := &isoline.Geometry{Polygons: []isoline.Polygon{{Rings: []isoline.Ring{{
		{Lat: 57, Lon: 11}, {Lat: 57, Lon: 12}, {Lat: 58, Lon: 12}, {Lat: 57, Lon: 11},
	}}}}}
	return &estimator.RunResult{
		RunID:         "run-1",
		Timestamp:     time.Date(2026, 8, 25, 7, 30, 0, 0, time.UTC),
		Vehicle:       vehicle.State{SoC: 0.8},
		Weather:       weather.Observation{TemperatureC: 6.5, WindSpeedMS: 4.2},
		WeatherSource: estimator.WeatherSourceProvider,
		Bands: []estimator.BandResult{
			{Band: band.DefaultBands()[0], DistanceKm: 406.5, Geometry: geom},
		},
	}
}

func TestPublishRun(t *testing.T) {
	client := &fakeClient{}
	pub := newPublisherWithClient(client, Config{}, zerolog.Nop())

	require.NoError(t, pub.PublishRun(testRun()))
	require.Len(t, client.published, 2)

	state := client.published[0]
	assert.Equal(t, "rangecast/state", state.topic)
	assert.True(t, state.retained)
	assert.EqualValues(t, 1, state.qos)

	var summary runSummary
	require.NoError(t, json.Unmarshal(state.payload, &summary))
	assert.Equal(t, "run-1", summary.RunID)
	assert.InDelta(t, 406.5, summary.MaxRangeKm, 1e-9)
	assert.InDelta(t, 80, summary.SoCPct, 1e-9)
	assert.Equal(t, 1, summary.Polygons)
	assert.False(t, summary.Partial)

	rangeMsg := client.published[1]
	assert.Equal(t, "rangecast/range_km", rangeMsg.topic)
	assert.Equal(t, "406.5", string(rangeMsg.payload))
}

func TestPublishRunCustomPrefix(t *testing.T) {
	client := &fakeClient{}
	pub := newPublisherWithClient(client, Config{TopicPrefix: "car/range"}, zerolog.Nop())

	require.NoError(t, pub.PublishRun(testRun()))
	assert.Equal(t, "car/range/state", client.published[0].topic)
	assert.Equal(t, "car/range/range_km", client.published[1].topic)
}

func TestPublishDiscovery(t *testing.T) {
	client := &fakeClient{}
	pub := newPublisherWithClient(client, Config{DiscoveryPrefix: "homeassistant"}, zerolog.Nop())

	require.NoError(t, pub.publishDiscovery())
	require.Len(t, client.published, 1)

	msg := client.published[0]
	assert.Equal(t, "homeassistant/sensor/rangecast/range_km/config", msg.topic)
	assert.True(t, msg.retained)

	var cfg discoveryConfig
	require.NoError(t, json.Unmarshal(msg.payload, &cfg))
	assert.Equal(t, "rangecast/range_km", cfg.StateTopic)
	assert.Equal(t, "km", cfg.UnitOfMeasurement)
	assert.Equal(t, "rangecast_range_km", cfg.UniqueID)
}

func TestPublishDiscoveryDisabled(t *testing.T) {
	client := &fakeClient{}
	pub := newPublisherWithClient(client, Config{}, zerolog.Nop())

	require.NoError(t, pub.publishDiscovery())
	assert.Empty(t, client.published)
}

func TestPublishRunPropagatesBrokerError(t *testing.T) {
	client := &fakeClient{err: assert.AnError}
	pub := newPublisherWithClient(client, Config{}, zerolog.Nop())

	require.Error(t, pub.PublishRun(testRun()))
}
