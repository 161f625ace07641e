// Package valhalla provides an isodistance client for a self-hosted Valhalla
// routing engine.
package valhalla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/isoline"
	"github.com/rangecast/rangecast/internal/provider/resilience"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "valhalla"

	// DefaultBaseURL assumes a Valhalla container on the local host.
	DefaultBaseURL = "http://localhost:8002"

	// DefaultCosting is the automobile costing model.
	DefaultCosting = "auto"

	// DefaultMaxDistanceKm mirrors Valhalla's stock
	// service_limits.isochrone.max_distance_contour.
	DefaultMaxDistanceKm = 400

	// DefaultTimeout is generous: large contours take tens of seconds.
	DefaultTimeout = 120 * time.Second
)

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Valhalla client.
type ClientConfig struct {
	// BaseURL of the Valhalla instance (optional).
	BaseURL string

	// Costing model for the contour (optional, defaults to "auto").
	Costing string

	// MaxDistanceKm is the engine's contour distance limit (optional).
	MaxDistanceKm float64

	// HTTPClient to use (optional). If nil, a resilient client with
	// defaults is created.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Valhalla isochrone API client.
type Client struct {
	baseURL    string
	costing    string
	maxKm      float64
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Valhalla client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	costing := cfg.Costing
	if costing == "" {
		costing = DefaultCosting
	}
	maxKm := cfg.MaxDistanceKm
	if maxKm == 0 {
		maxKm = DefaultMaxDistanceKm
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
		costing:    costing,
		maxKm:      maxKm,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// MaxDistanceKm returns the engine's contour distance limit.
func (c *Client) MaxDistanceKm() float64 {
	return c.maxKm
}

// Isodistance requests a single driving-distance contour polygon.
func (c *Client) Isodistance(ctx context.Context, origin isoline.Coordinate, distanceKm float64) (*isoline.Geometry, error) {
	body, err := json.Marshal(isochroneRequest{
		Locations: []location{{Lat: origin.Lat, Lon: origin.Lon}},
		Costing:   c.costing,
		Contours:  []contour{{Distance: distanceKm}},
		Polygons:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/isochrone"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().
		Float64("lat", origin.Lat).
		Float64("lon", origin.Lon).
		Float64("distance_km", distanceKm).
		Str("costing", c.costing).
		Msg("requesting isodistance contour from valhalla")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &isoline.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing engine",
			Err:      isoline.ErrUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var fc featureCollection
	if err := json.Unmarshal(respBody, &fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	geom, err := c.contourGeometry(&fc, distanceKm)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("polygons", len(geom.Polygons)).
		Float64("distance_km", distanceKm).
		Msg("received isodistance contour from valhalla")

	return geom, nil
}

// contourGeometry picks the feature matching the requested distance. Valhalla
// may round the contour value, so match within 1 km.
func (c *Client) contourGeometry(fc *featureCollection, distanceKm float64) (*isoline.Geometry, error) {
	for i := range fc.Features {
		f := &fc.Features[i]
		if math.Abs(f.Properties.Contour-distanceKm) >= 1.0 {
			continue
		}
		var geom isoline.Geometry
		if err := json.Unmarshal(f.Geometry, &geom); err != nil {
			return nil, fmt.Errorf("decoding contour geometry: %w", err)
		}
		return &geom, nil
	}
	return nil, &isoline.Error{
		Provider: ProviderName,
		Code:     "CONTOUR_MISSING",
		Message:  fmt.Sprintf("no contour within 1km of %.1fkm in %d features", distanceKm, len(fc.Features)),
		Err:      isoline.ErrEmptyGeometry,
	}
}

// handleErrorResponse maps Valhalla error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var vErr errorResponse
	if err := json.Unmarshal(body, &vErr); err != nil {
		if statusCode >= 500 {
			return &isoline.Error{
				Provider: ProviderName,
				Code:     fmt.Sprintf("SERVER_%d", statusCode),
				Message:  "routing engine is temporarily unavailable",
				Err:      isoline.ErrUnavailable,
			}
		}
		return &isoline.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing engine returned status %d", statusCode),
			Err:      isoline.ErrUnavailable,
		}
	}

	switch vErr.ErrorCode {
	case errCodeExceedsLimit:
		return &isoline.Error{
			Provider: ProviderName,
			Code:     "EXCEEDS_LIMIT",
			Message:  vErr.Error,
			Err:      isoline.ErrDistanceLimit,
		}
	case errCodeNoEdges, errCodeNoSegment:
		return &isoline.Error{
			Provider: ProviderName,
			Code:     "NO_NETWORK",
			Message:  vErr.Error,
			Err:      isoline.ErrNoNetwork,
		}
	default:
		return &isoline.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("VALHALLA_%d", vErr.ErrorCode),
			Message:  vErr.Error,
			Err:      isoline.ErrUnavailable,
		}
	}
}
