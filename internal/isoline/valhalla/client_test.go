package valhalla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangecast/rangecast/internal/isoline"
)

// isochroneResponse builds a minimal Valhalla FeatureCollection with one
// contour polygon around the given point.
func isochroneResponse(contourKm, lat, lon float64) string {
	fc := map[string]interface{}{
		"type": "FeatureCollection",
		"features": []map[string]interface{}{{
			"type":       "Feature",
			"properties": map[string]interface{}{"contour": contourKm, "metric": "distance"},
			"geometry": map[string]interface{}{
				"type": "Polygon",
				"coordinates": [][][]float64{{
					{lon - 0.5, lat - 0.5},
					{lon + 0.5, lat - 0.5},
					{lon + 0.5, lat + 0.5},
					{lon - 0.5, lat + 0.5},
					{lon - 0.5, lat - 0.5},
				}},
			},
		}},
	}
	data, _ := json.Marshal(fc)
	return string(data)
}

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:    serverURL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestIsodistance(t *testing.T) {
	origin := isoline.Coordinate{Lat: 57.7, Lon: 11.9}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/isochrone", r.URL.Path)

		var req isochroneRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Locations, 1)
		assert.InDelta(t, origin.Lat, req.Locations[0].Lat, 1e-9)
		assert.InDelta(t, origin.Lon, req.Locations[0].Lon, 1e-9)
		assert.Equal(t, "auto", req.Costing)
		require.Len(t, req.Contours, 1)
		assert.InDelta(t, 150, req.Contours[0].Distance, 1e-9)
		assert.True(t, req.Polygons)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(isochroneResponse(150, origin.Lat, origin.Lon)))
	}))
	defer server.Close()

	geom, err := newTestClient(server.URL).Isodistance(context.Background(), origin, 150)
	require.NoError(t, err)
	require.Len(t, geom.Polygons, 1)
	assert.True(t, geom.Contains(origin))
}

func TestIsodistanceMatchesRoundedContour(t *testing.T) {
	origin := isoline.Coordinate{Lat: 57.7, Lon: 11.9}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Valhalla rounded 149.6 to 150.
		_, _ = w.Write([]byte(isochroneResponse(150, origin.Lat, origin.Lon)))
	}))
	defer server.Close()

	geom, err := newTestClient(server.URL).Isodistance(context.Background(), origin, 149.6)
	require.NoError(t, err)
	assert.False(t, geom.IsEmpty())
}

func TestIsodistanceContourMissing(t *testing.T) {
	origin := isoline.Coordinate{Lat: 57.7, Lon: 11.9}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(isochroneResponse(50, origin.Lat, origin.Lon)))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Isodistance(context.Background(), origin, 150)
	require.ErrorIs(t, err, isoline.ErrEmptyGeometry)
}

func TestIsodistanceErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantCode string
	}{
		{
			name:     "exceeds limit",
			status:   http.StatusBadRequest,
			body:     `{"error_code":154,"error":"Exceeded max contour distance of 400 km","status_code":400,"status":"Bad Request"}`,
			wantErr:  isoline.ErrDistanceLimit,
			wantCode: "EXCEEDS_LIMIT",
		},
		{
			name:     "no suitable edges",
			status:   http.StatusBadRequest,
			body:     `{"error_code":171,"error":"No suitable edges near location","status_code":400,"status":"Bad Request"}`,
			wantErr:  isoline.ErrNoNetwork,
			wantCode: "NO_NETWORK",
		},
		{
			name:     "no segment",
			status:   http.StatusBadRequest,
			body:     `{"error_code":442,"error":"No segment found","status_code":400,"status":"Bad Request"}`,
			wantErr:  isoline.ErrNoNetwork,
			wantCode: "NO_NETWORK",
		},
		{
			name:     "other valhalla error",
			status:   http.StatusBadRequest,
			body:     `{"error_code":100,"error":"Failed to parse json","status_code":400,"status":"Bad Request"}`,
			wantErr:  isoline.ErrUnavailable,
			wantCode: "VALHALLA_100",
		},
		{
			name:    "server error without body",
			status:  http.StatusBadGateway,
			body:    "bad gateway",
			wantErr: isoline.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Isodistance(context.Background(), isoline.Coordinate{Lat: 57.7, Lon: 11.9}, 100)
			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantCode != "" {
				var isoErr *isoline.Error
				require.ErrorAs(t, err, &isoErr)
				assert.Equal(t, tt.wantCode, isoErr.Code)
				assert.Equal(t, ProviderName, isoErr.Provider)
			}
		})
	}
}

func TestIsodistanceTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	_, err := newTestClient(server.URL).Isodistance(context.Background(), isoline.Coordinate{Lat: 57.7, Lon: 11.9}, 100)
	require.ErrorIs(t, err, isoline.ErrUnavailable)

	var isoErr *isoline.Error
	require.ErrorAs(t, err, &isoErr)
	assert.Equal(t, "REQUEST_FAILED", isoErr.Code)
}

func TestClientDefaults(t *testing.T) {
	c := NewClient(ClientConfig{Logger: zerolog.Nop()})
	assert.Equal(t, ProviderName, c.Name())
	assert.InDelta(t, DefaultMaxDistanceKm, c.MaxDistanceKm(), 1e-9)
}
