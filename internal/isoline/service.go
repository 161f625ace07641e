package isoline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the isoline service.
type ServiceConfig struct {
	// Provider is the routing engine.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// QueryTimeout bounds each isodistance call, including the single
	// clamped retry. Default: 60 seconds (large contours are slow).
	QueryTimeout time.Duration
}

// Service issues isodistance queries and enforces the response contract:
// clamp-and-retry-once on distance-limit errors, no retry when there is no
// network near the origin, and validation that the polygon is non-empty and
// encloses the origin.
type Service struct {
	provider     Provider
	logger       zerolog.Logger
	queryTimeout time.Duration
}

// NewService creates a new isoline service.
func NewService(cfg ServiceConfig) *Service {
	queryTimeout := cfg.QueryTimeout
	if queryTimeout == 0 {
		queryTimeout = 60 * time.Second
	}
	return &Service{
		provider:     cfg.Provider,
		logger:       cfg.Logger,
		queryTimeout: queryTimeout,
	}
}

// QueryResult is a validated reachability contour.
type QueryResult struct {
	// Geometry is the reachability polygon.
	Geometry *Geometry

	// DistanceKm is the distance actually queried, which is smaller than
	// requested when the engine's limit forced a clamp.
	DistanceKm float64

	// Clamped reports that the requested distance exceeded the engine
	// limit and the contour was re-queried at the maximum.
	Clamped bool
}

// Query fetches the reachability polygon for a single distance. On a
// distance-limit rejection it clamps to the engine maximum and retries
// exactly once. All other failures are returned to the caller; queries for
// other distances are unaffected because the service holds no mutable state.
func (s *Service) Query(ctx context.Context, origin Coordinate, distanceKm float64) (*QueryResult, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if distanceKm <= 0 {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "NON_POSITIVE_DISTANCE",
			Message:  "isodistance distance must be positive",
			Err:      ErrInvalidCoordinates,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	geom, err := s.provider.Isodistance(ctx, origin, distanceKm)
	clamped := false
	if errors.Is(err, ErrDistanceLimit) {
		maxKm := s.provider.MaxDistanceKm()
		if maxKm <= 0 || maxKm >= distanceKm {
			return nil, err
		}
		s.logger.Warn().
			Float64("requested_km", distanceKm).
			Float64("clamped_km", maxKm).
			Str("provider", s.provider.Name()).
			Msg("distance exceeds engine limit, retrying clamped")

		distanceKm = maxKm
		clamped = true
		geom, err = s.provider.Isodistance(ctx, origin, distanceKm)
	}
	if err != nil {
		return nil, err
	}

	if geom.IsEmpty() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "EMPTY_GEOMETRY",
			Message:  "engine returned an empty contour",
			Err:      ErrEmptyGeometry,
		}
	}
	if !geom.Contains(origin) {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "ORIGIN_OUTSIDE",
			Message:  "contour does not enclose the origin",
			Err:      ErrOriginOutside,
		}
	}

	return &QueryResult{
		Geometry:   geom,
		DistanceKm: distanceKm,
		Clamped:    clamped,
	}, nil
}

// ProviderName returns the name of the underlying routing engine.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
