package vehicle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the vehicle state service.
type ServiceConfig struct {
	// Provider is the telemetry source.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// HomeLat and HomeLon are used when the vehicle tracker reports no
	// position. Required: without them a missing GPS fix would abort runs
	// that could otherwise still produce a useful estimate.
	HomeLat float64
	HomeLon float64

	// ReadTimeout bounds the telemetry read. Default: 10 seconds.
	ReadTimeout time.Duration
}

// Service validates and normalizes raw telemetry into a run-ready State.
// Missing SoC or SoH fails the read; a missing position falls back to the
// configured home coordinates.
type Service struct {
	provider    Provider
	logger      zerolog.Logger
	homeLat     float64
	homeLon     float64
	readTimeout time.Duration
}

// NewService creates a new vehicle state service.
func NewService(cfg ServiceConfig) *Service {
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	return &Service{
		provider:    cfg.Provider,
		logger:      cfg.Logger,
		homeLat:     cfg.HomeLat,
		homeLon:     cfg.HomeLon,
		readTimeout: readTimeout,
	}
}

// Read fetches, validates and clamps the vehicle state.
func (s *Service) Read(ctx context.Context) (*State, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	reading, err := s.provider.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStateUnavailable, s.provider.Name(), err)
	}

	if reading.SoC == nil {
		return nil, fmt.Errorf("%w: state of charge missing", ErrStateUnavailable)
	}
	if reading.SoH == nil {
		return nil, fmt.Errorf("%w: state of health missing", ErrStateUnavailable)
	}

	soh := clamp(*reading.SoH, 0, 1)
	if soh <= 0 {
		return nil, fmt.Errorf("%w: state of health %.2f not in (0, 1]", ErrStateUnavailable, *reading.SoH)
	}

	state := &State{
		SoC:            clamp(*reading.SoC, 0, 1),
		SoH:            soh,
		ChargingStatus: reading.ChargingStatus,
		IsCharging:     isCharging(reading.ChargingStatus),
		OdometerKm:     reading.OdometerKm,
		OEMRangeKm:     reading.OEMRangeKm,
		FetchedAt:      time.Now(),
	}

	if reading.Lat != nil && reading.Lon != nil {
		state.Lat = *reading.Lat
		state.Lon = *reading.Lon
		state.PositionSource = PositionGPS
	} else {
		state.Lat = s.homeLat
		state.Lon = s.homeLon
		state.PositionSource = PositionDefault
		s.logger.Info().
			Float64("lat", s.homeLat).
			Float64("lon", s.homeLon).
			Msg("no GPS fix, using home position")
	}

	s.logger.Info().
		Float64("soc", state.SoC).
		Float64("soh", state.SoH).
		Str("charging_status", state.ChargingStatus).
		Str("position_source", string(state.PositionSource)).
		Msg("vehicle state read")

	return state, nil
}

// isCharging interprets the raw charging status string.
func isCharging(status string) bool {
	switch strings.ToLower(status) {
	case "charging", "charging_ac", "charging_dc", "smart_charging":
		return true
	default:
		return false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
