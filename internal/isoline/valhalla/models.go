package valhalla

import "encoding/json"

// isochroneRequest is the Valhalla /isochrone request body.
type isochroneRequest struct {
	Locations []location `json:"locations"`
	Costing   string     `json:"costing"`
	Contours  []contour  `json:"contours"`
	Polygons  bool       `json:"polygons"`
}

// location is a Valhalla lat/lon pair.
type location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// contour selects a single isodistance ring in kilometres.
type contour struct {
	Distance float64 `json:"distance"`
}

// featureCollection is the GeoJSON response envelope.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// feature is one contour polygon with its properties.
type feature struct {
	Type       string            `json:"type"`
	Properties featureProperties `json:"properties"`
	Geometry   json.RawMessage   `json:"geometry"`
}

// featureProperties carries the contour value the feature belongs to.
type featureProperties struct {
	Contour float64 `json:"contour"`
	Metric  string  `json:"metric,omitempty"`
}

// errorResponse is Valhalla's error body.
type errorResponse struct {
	ErrorCode  int    `json:"error_code"`
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
}

// Valhalla error codes relevant to isodistance queries.
const (
	// errCodeExceedsLimit: contour distance above the configured
	// max_distance_contour.
	errCodeExceedsLimit = 154
	// errCodeNoEdges: no suitable edges near the location.
	errCodeNoEdges = 171
	// errCodeNoSegment: location could not be matched to the network.
	errCodeNoSegment = 442
)
