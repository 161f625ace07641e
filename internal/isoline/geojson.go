package isoline

import (
	"encoding/json"
	"fmt"
)

// geoJSONGeometry is the wire shape of a GeoJSON geometry object.
type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON renders the geometry as GeoJSON: a Polygon when it has a single
// polygon, a MultiPolygon otherwise. Positions are [lon, lat].
func (g Geometry) MarshalJSON() ([]byte, error) {
	if len(g.Polygons) == 1 {
		return json.Marshal(struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		}{Type: "Polygon", Coordinates: polygonPositions(g.Polygons[0])})
	}

	coords := make([][][][]float64, 0, len(g.Polygons))
	for _, p := range g.Polygons {
		coords = append(coords, polygonPositions(p))
	}
	return json.Marshal(struct {
		Type        string          `json:"type"`
		Coordinates [][][][]float64 `json:"coordinates"`
	}{Type: "MultiPolygon", Coordinates: coords})
}

// UnmarshalJSON parses a GeoJSON Polygon or MultiPolygon geometry.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geoJSONGeometry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding geometry: %w", err)
	}

	switch raw.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(raw.Coordinates, &coords); err != nil {
			return fmt.Errorf("decoding polygon coordinates: %w", err)
		}
		poly, err := polygonFromPositions(coords)
		if err != nil {
			return err
		}
		g.Polygons = []Polygon{poly}
		return nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(raw.Coordinates, &coords); err != nil {
			return fmt.Errorf("decoding multipolygon coordinates: %w", err)
		}
		g.Polygons = g.Polygons[:0]
		for _, pc := range coords {
			poly, err := polygonFromPositions(pc)
			if err != nil {
				return err
			}
			g.Polygons = append(g.Polygons, poly)
		}
		return nil
	default:
		return fmt.Errorf("unsupported geometry type %q", raw.Type)
	}
}

func polygonPositions(p Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p.Rings))
	for _, ring := range p.Rings {
		positions := make([][]float64, 0, len(ring))
		for _, c := range ring {
			positions = append(positions, []float64{c.Lon, c.Lat})
		}
		rings = append(rings, positions)
	}
	return rings
}

func polygonFromPositions(rings [][][]float64) (Polygon, error) {
	poly := Polygon{Rings: make([]Ring, 0, len(rings))}
	for _, positions := range rings {
		ring := make(Ring, 0, len(positions))
		for _, pos := range positions {
			if len(pos) < 2 {
				return Polygon{}, fmt.Errorf("position needs [lon, lat], got %d values", len(pos))
			}
			ring = append(ring, Coordinate{Lon: pos[0], Lat: pos[1]})
		}
		poly.Rings = append(poly.Rings, ring)
	}
	return poly, nil
}
