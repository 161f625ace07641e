// Package output packages run results into the artifacts the map renderer
// consumes: a GeoJSON FeatureCollection of band contours and a metadata
// document describing the run.
package output

import (
	"math"
	"time"

	"github.com/rangecast/rangecast/internal/estimator"
)

const kmToMiles = 0.621371

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   interface{}            `json:"geometry"`
}

// FeatureCollection is the GeoJSON artifact rendered as nested range rings.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// BuildFeatureCollection renders the band contours plus a vehicle position
// marker. Bands without a polygon are omitted here; the metadata document
// still lists them so the renderer can show "unavailable".
func BuildFeatureCollection(result *estimator.RunResult) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection"}

	for _, b := range result.Bands {
		if !b.HasPolygon() {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"band":        b.Band.Label,
				"fraction":    b.Band.Fraction,
				"color":       b.Band.Color,
				"range_km":    round1(b.DistanceKm),
				"range_miles": round1(b.DistanceKm * kmToMiles),
				"clamped":     b.Clamped,
			},
			Geometry: b.Geometry,
		})
	}

	fc.Features = append(fc.Features, Feature{
		Type: "Feature",
		Properties: map[string]interface{}{
			"type":  "vehicle",
			"label": "Vehicle",
		},
		Geometry: pointGeometry(result.Vehicle.Lat, result.Vehicle.Lon),
	})

	return fc
}

// Metadata is the run summary document for the renderer.
type Metadata struct {
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id"`
	Vehicle   VehicleMeta     `json:"vehicle"`
	Position  PositionMeta    `json:"position"`
	Weather   WeatherMeta     `json:"weather"`
	Range     RangeMeta       `json:"range"`
	Calc      CalculationMeta `json:"calculation"`
}

// VehicleMeta is the vehicle snapshot section.
type VehicleMeta struct {
	SoCPct         float64  `json:"soc_pct"`
	SoHPct         float64  `json:"soh_pct"`
	ChargingStatus string   `json:"charging_status"`
	IsCharging     bool     `json:"is_charging"`
	OdometerKm     *float64 `json:"odometer_km,omitempty"`
	OEMRangeKm     *float64 `json:"oem_range_km,omitempty"`
}

// PositionMeta records where the origin came from.
type PositionMeta struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Source string  `json:"source"`
}

// WeatherMeta is the conditions section.
type WeatherMeta struct {
	TempC       float64 `json:"temp_c"`
	WindMS      float64 `json:"wind_ms"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Source      string  `json:"source"`
}

// RangeMeta is the per-band summary.
type RangeMeta struct {
	MaxRangeKm    float64    `json:"max_range_km"`
	MaxRangeMiles float64    `json:"max_range_miles"`
	Bands         []BandMeta `json:"bands"`
}

// BandMeta summarizes one band. Every band slot appears here, failed or not.
type BandMeta struct {
	Label         string  `json:"label"`
	Color         string  `json:"color"`
	RangeKm       float64 `json:"range_km"`
	RangeMiles    float64 `json:"range_miles"`
	HasPolygon    bool    `json:"has_polygon"`
	Clamped       bool    `json:"clamped"`
	FailureReason string  `json:"failure_reason,omitempty"`
}

// CalculationMeta describes how the estimate was produced.
type CalculationMeta struct {
	Method              string  `json:"method"`
	EnergyModel         string  `json:"energy_model"`
	ConsumptionKWhPerKm float64 `json:"consumption_kwh_per_km"`
	DurationSeconds     float64 `json:"duration_seconds"`
	Partial             bool    `json:"partial"`
}

// BuildMetadata assembles the metadata document for a run.
func BuildMetadata(result *estimator.RunResult) *Metadata {
	bands := make([]BandMeta, 0, len(result.Bands))
	for _, b := range result.Bands {
		bands = append(bands, BandMeta{
			Label:         b.Band.Label,
			Color:         b.Band.Color,
			RangeKm:       round1(b.DistanceKm),
			RangeMiles:    round1(b.DistanceKm * kmToMiles),
			HasPolygon:    b.HasPolygon(),
			Clamped:       b.Clamped,
			FailureReason: string(b.FailureReason),
		})
	}

	return &Metadata{
		Timestamp: result.Timestamp,
		RunID:     result.RunID,
		Vehicle: VehicleMeta{
			SoCPct:         round1(result.Vehicle.SoC * 100),
			SoHPct:         round1(result.Vehicle.SoH * 100),
			ChargingStatus: result.Vehicle.ChargingStatus,
			IsCharging:     result.Vehicle.IsCharging,
			OdometerKm:     result.Vehicle.OdometerKm,
			OEMRangeKm:     result.Vehicle.OEMRangeKm,
		},
		Position: PositionMeta{
			Lat:    result.Vehicle.Lat,
			Lon:    result.Vehicle.Lon,
			Source: string(result.Vehicle.PositionSource),
		},
		Weather: WeatherMeta{
			TempC:       result.Weather.TemperatureC,
			WindMS:      result.Weather.WindSpeedMS,
			Description: result.Weather.Description,
			Icon:        result.Weather.Icon,
			Source:      result.WeatherSource,
		},
		Range: RangeMeta{
			MaxRangeKm:    round1(result.MaxRangeKm()),
			MaxRangeMiles: round1(result.MaxRangeKm() * kmToMiles),
			Bands:         bands,
		},
		Calc: CalculationMeta{
			Method:              "valhalla_isodistance",
			EnergyModel:         "physics_mixed_driving",
			ConsumptionKWhPerKm: result.ConsumptionKWhPerKm,
			DurationSeconds:     result.Duration.Seconds(),
			Partial:             result.Partial,
		},
	}
}

// pointGeometry builds a GeoJSON Point.
func pointGeometry(lat, lon float64) map[string]interface{} {
	return map[string]interface{}{
		"type":        "Point",
		"coordinates": []float64{lon, lat},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
