package isoline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareAround returns a closed square ring centred on (lat, lon).
func squareAround(lat, lon, half float64) Ring {
	return Ring{
		{Lat: lat - half, Lon: lon - half},
		{Lat: lat - half, Lon: lon + half},
		{Lat: lat + half, Lon: lon + half},
		{Lat: lat + half, Lon: lon - half},
		{Lat: lat - half, Lon: lon - half},
	}
}

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Lat: 57.7, Lon: 11.9}.Validate())
	assert.NoError(t, Coordinate{Lat: -90, Lon: 180}.Validate())

	assert.ErrorIs(t, Coordinate{Lat: 91, Lon: 0}.Validate(), ErrInvalidCoordinates)
	assert.ErrorIs(t, Coordinate{Lat: 0, Lon: -181}.Validate(), ErrInvalidCoordinates)
}

func TestGeometryIsEmpty(t *testing.T) {
	var nilGeom *Geometry
	assert.True(t, nilGeom.IsEmpty())
	assert.True(t, (&Geometry{}).IsEmpty())
	assert.True(t, (&Geometry{Polygons: []Polygon{{}}}).IsEmpty())

	degenerate := &Geometry{Polygons: []Polygon{{Rings: []Ring{{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}}}}}
	assert.True(t, degenerate.IsEmpty())

	valid := &Geometry{Polygons: []Polygon{{Rings: []Ring{squareAround(57.7, 11.9, 0.5)}}}}
	assert.False(t, valid.IsEmpty())
}

func TestGeometryContains(t *testing.T) {
	origin := Coordinate{Lat: 57.7, Lon: 11.9}
	geom := &Geometry{Polygons: []Polygon{{Rings: []Ring{squareAround(origin.Lat, origin.Lon, 0.5)}}}}

	assert.True(t, geom.Contains(origin))
	assert.False(t, geom.Contains(Coordinate{Lat: 59.0, Lon: 11.9}))
	assert.False(t, geom.Contains(Coordinate{Lat: 57.7, Lon: 13.0}))
}

func TestGeometryContainsRespectsHoles(t *testing.T) {
	origin := Coordinate{Lat: 57.7, Lon: 11.9}
	geom := &Geometry{Polygons: []Polygon{{
		Rings: []Ring{
			squareAround(origin.Lat, origin.Lon, 1.0),
			squareAround(origin.Lat, origin.Lon, 0.1),
		},
	}}}

	assert.False(t, geom.Contains(origin), "point inside a hole is outside")
	assert.True(t, geom.Contains(Coordinate{Lat: origin.Lat + 0.5, Lon: origin.Lon}))
}

func TestGeometryContainsMultiPolygon(t *testing.T) {
	geom := &Geometry{Polygons: []Polygon{
		{Rings: []Ring{squareAround(10, 10, 0.5)}},
		{Rings: []Ring{squareAround(20, 20, 0.5)}},
	}}

	assert.True(t, geom.Contains(Coordinate{Lat: 10, Lon: 10}))
	assert.True(t, geom.Contains(Coordinate{Lat: 20, Lon: 20}))
	assert.False(t, geom.Contains(Coordinate{Lat: 15, Lon: 15}))
}

func TestGeometryGeoJSONRoundTrip(t *testing.T) {
	single := Geometry{Polygons: []Polygon{{Rings: []Ring{squareAround(57.7, 11.9, 0.5)}}}}

	data, err := json.Marshal(single)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Polygon"`)

	var back Geometry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, single, back)

	multi := Geometry{Polygons: []Polygon{
		{Rings: []Ring{squareAround(10, 10, 0.5)}},
		{Rings: []Ring{squareAround(20, 20, 0.5)}},
	}}

	data, err = json.Marshal(multi)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"MultiPolygon"`)

	var backMulti Geometry
	require.NoError(t, json.Unmarshal(data, &backMulti))
	assert.Equal(t, multi, backMulti)
}

func TestGeometryUnmarshalPositionsAreLonLat(t *testing.T) {
	raw := `{"type":"Polygon","coordinates":[[[11.9,57.7],[12.0,57.7],[12.0,57.8],[11.9,57.7]]]}`

	var geom Geometry
	require.NoError(t, json.Unmarshal([]byte(raw), &geom))
	require.Len(t, geom.Polygons, 1)
	assert.Equal(t, Coordinate{Lat: 57.7, Lon: 11.9}, geom.Polygons[0].Rings[0][0])
}

func TestGeometryUnmarshalRejectsUnknownType(t *testing.T) {
	var geom Geometry
	err := json.Unmarshal([]byte(`{"type":"LineString","coordinates":[]}`), &geom)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported geometry type")
}

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Provider: "valhalla", Code: "EXCEEDS_LIMIT", Message: "too far", Err: ErrDistanceLimit}
	assert.ErrorIs(t, err, ErrDistanceLimit)
	assert.Contains(t, err.Error(), "too far")
}
