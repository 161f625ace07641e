package estimator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rangecast/rangecast/internal/band"
	"github.com/rangecast/rangecast/internal/energy"
	"github.com/rangecast/rangecast/internal/isoline"
	"github.com/rangecast/rangecast/internal/vehicle"
	"github.com/rangecast/rangecast/internal/weather"
)

// Weather sources recorded in the run result.
const (
	WeatherSourceProvider = "provider"
	WeatherSourceDefault  = "default"
)

// MetricsSink receives run and band outcomes. Implementations must be safe
// for concurrent use.
type MetricsSink interface {
	ObserveRun(result *RunResult)
	ObserveBand(label string, outcome string, distanceKm float64)
}

// NopSink discards all observations.
type NopSink struct{}

func (NopSink) ObserveRun(*RunResult)               {}
func (NopSink) ObserveBand(string, string, float64) {}

// Config holds configuration for the estimation engine.
type Config struct {
	// Vehicles reads the vehicle state.
	Vehicles *vehicle.Service

	// Weather reads ambient conditions.
	Weather *weather.Service

	// Model is the energy consumption model.
	Model *energy.Model

	// Bands are the energy bands in descending fraction order.
	// Defaults to band.DefaultBands().
	Bands []band.Band

	// Isolines queries the routing engine.
	Isolines *isoline.Service

	// MinContourKm is the smallest distance worth contouring; bands below
	// it are marked failed without a routing call. Default: 1.
	MinContourKm float64

	// RunTimeout bounds the whole run. Bands that miss the deadline are
	// reported as timed out and the result is marked partial. Default: 3m.
	RunTimeout time.Duration

	// Logger for engine operations.
	Logger zerolog.Logger

	// Metrics receives run outcomes (optional).
	Metrics MetricsSink

	// Tracer records a span per run and per band (optional).
	Tracer trace.Tracer
}

// Engine turns vehicle and environmental state into per-band reachability
// polygons. It holds no mutable state across runs: two runs over identical
// inputs and routing responses produce identical results.
type Engine struct {
	vehicles     *vehicle.Service
	weather      *weather.Service
	model        *energy.Model
	bands        []band.Band
	isolines     *isoline.Service
	minContourKm float64
	runTimeout   time.Duration
	logger       zerolog.Logger
	metrics      MetricsSink
	tracer       trace.Tracer
}

// NewEngine creates the estimation engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Vehicles == nil || cfg.Weather == nil || cfg.Model == nil || cfg.Isolines == nil {
		return nil, fmt.Errorf("vehicles, weather, model and isolines are all required")
	}

	bands := cfg.Bands
	if len(bands) == 0 {
		bands = band.DefaultBands()
	}
	if err := band.Validate(bands); err != nil {
		return nil, fmt.Errorf("energy bands: %w", err)
	}

	minContourKm := cfg.MinContourKm
	if minContourKm == 0 {
		minContourKm = 1
	}
	runTimeout := cfg.RunTimeout
	if runTimeout == 0 {
		runTimeout = 3 * time.Minute
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopSink{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("estimator")
	}

	return &Engine{
		vehicles:     cfg.Vehicles,
		weather:      cfg.Weather,
		model:        cfg.Model,
		bands:        bands,
		isolines:     cfg.Isolines,
		minContourKm: minContourKm,
		runTimeout:   runTimeout,
		logger:       cfg.Logger,
		metrics:      metrics,
		tracer:       tracer,
	}, nil
}

// Run executes one estimation. The returned result always has one slot per
// band; per-band failures never abort the run. A nil result means the run
// could not start at all (vehicle state missing or planner preconditions
// violated).
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "estimator.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	log := e.logger.With().Str("run_id", runID).Logger()
	log.Info().Msg("starting range estimation run")

	state, err := e.vehicles.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading vehicle state: %w", err)
	}

	obs, weatherSource := e.readWeather(ctx, state, log)

	cond := energy.Conditions{
		AmbientC:    obs.TemperatureC,
		WindSpeedMS: obs.WindSpeedMS,
	}
	consumption := e.model.BlendedConsumption(cond)

	params := e.model.Parameters()
	plans, err := band.PlanDistances(e.bands, band.Battery{
		CapacityKWh: params.BatteryCapacityKWh,
		SoC:         state.SoC,
		SoH:         state.SoH,
		ReserveSoC:  params.ReserveSoC,
	}, consumption)
	if err != nil {
		return nil, fmt.Errorf("planning band distances: %w", err)
	}

	result := &RunResult{
		RunID:               runID,
		Timestamp:           start,
		Vehicle:             *state,
		Weather:             *obs,
		WeatherSource:       weatherSource,
		ConsumptionKWhPerKm: consumption,
		Bands:               make([]BandResult, len(plans)),
	}

	origin := isoline.Coordinate{Lat: state.Lat, Lon: state.Lon}

	// Fan out one query per band. Each goroutine writes only its own slot.
	var wg sync.WaitGroup
	for i, plan := range plans {
		result.Bands[i] = BandResult{Band: plan.Band, DistanceKm: plan.DistanceKm}

		if plan.DistanceKm < e.minContourKm {
			result.Bands[i].FailureReason = FailureBelowMinimum
			continue
		}

		wg.Add(1)
		go func(slot *BandResult) {
			defer wg.Done()
			e.queryBand(ctx, origin, slot, log)
		}(&result.Bands[i])
	}
	wg.Wait()

	result.Duration = time.Since(start)
	result.Partial = ctx.Err() != nil

	for _, b := range result.Bands {
		e.metrics.ObserveBand(b.Band.Label, bandOutcome(b), b.DistanceKm)
	}
	e.metrics.ObserveRun(result)

	log.Info().
		Dur("duration", result.Duration).
		Float64("max_range_km", result.MaxRangeKm()).
		Float64("consumption_kwh_km", consumption).
		Int("polygons", result.PolygonCount()).
		Bool("partial", result.Partial).
		Msg("range estimation run complete")

	return result, nil
}

// readWeather fetches conditions, falling back to the documented default
// when the provider is unavailable. Weather absence degrades accuracy but
// never aborts a run.
func (e *Engine) readWeather(ctx context.Context, state *vehicle.State, log zerolog.Logger) (*weather.Observation, string) {
	obs, err := e.weather.Current(ctx, state.Lat, state.Lon)
	if err != nil {
		log.Warn().Err(err).Msg("weather unavailable, using defaults")
		return weather.Default(), WeatherSourceDefault
	}
	return obs, WeatherSourceProvider
}

// queryBand runs one isodistance query and records the outcome in its slot.
func (e *Engine) queryBand(ctx context.Context, origin isoline.Coordinate, slot *BandResult, log zerolog.Logger) {
	ctx, span := e.tracer.Start(ctx, "estimator.band",
		trace.WithAttributes(
			attribute.String("band.label", slot.Band.Label),
			attribute.Float64("band.distance_km", slot.DistanceKm),
		))
	defer span.End()

	res, err := e.isolines.Query(ctx, origin, slot.DistanceKm)
	if err != nil {
		slot.FailureReason = classifyQueryError(err)
		log.Warn().Err(err).
			Str("band", slot.Band.Label).
			Str("reason", string(slot.FailureReason)).
			Float64("distance_km", slot.DistanceKm).
			Msg("band contour failed")
		return
	}

	slot.Geometry = res.Geometry
	slot.QueriedKm = res.DistanceKm
	slot.Clamped = res.Clamped

	log.Debug().
		Str("band", slot.Band.Label).
		Float64("distance_km", slot.DistanceKm).
		Float64("queried_km", res.DistanceKm).
		Bool("clamped", res.Clamped).
		Msg("band contour ready")
}

// classifyQueryError maps isoline errors onto renderer-facing reasons.
func classifyQueryError(err error) FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return FailureTimeout
	case errors.Is(err, isoline.ErrNoNetwork):
		return FailureNoNetwork
	case errors.Is(err, isoline.ErrEmptyGeometry) || errors.Is(err, isoline.ErrOriginOutside):
		return FailureInvalidGeometry
	default:
		return FailureTransport
	}
}

func bandOutcome(b BandResult) string {
	if b.FailureReason == FailureNone {
		if b.Clamped {
			return "clamped"
		}
		return "ok"
	}
	return string(b.FailureReason)
}
