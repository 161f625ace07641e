package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/estimator"
	"github.com/rangecast/rangecast/internal/history"
	"github.com/rangecast/rangecast/internal/metrics"
	"github.com/rangecast/rangecast/internal/output"
	"github.com/rangecast/rangecast/internal/publish/mqtt"
)

// scheduler drives periodic estimation runs and fans the results out to
// storage, the renderer artifacts and MQTT.
type scheduler struct {
	engine    *estimator.Engine
	runs      history.Repository
	writer    *output.Writer
	publisher *mqtt.Publisher
	metrics   *metrics.Sink
	keep      int
	logger    zerolog.Logger
}

// loop runs until ctx is cancelled. Runs never overlap: a slow run simply
// delays the next tick's work.
func (s *scheduler) loop(ctx context.Context, interval time.Duration, runOnStart bool) {
	if runOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes one estimation and distributes the result. A run that
// cannot start is counted and skipped; the previous artifacts stay in place.
func (s *scheduler) runOnce(ctx context.Context) {
	result, err := s.engine.Run(ctx)
	if err != nil {
		s.metrics.ObserveFailedRun()
		s.logger.Error().Err(err).Msg("estimation run failed")
		return
	}

	if err := s.runs.Save(ctx, result); err != nil {
		s.logger.Error().Err(err).Msg("saving run failed")
	} else if err := s.runs.Prune(ctx, s.keep); err != nil {
		s.logger.Warn().Err(err).Msg("pruning run history failed")
	}

	if err := s.writer.WriteRun(result); err != nil {
		s.logger.Error().Err(err).Msg("writing run artifacts failed")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRun(result); err != nil {
			s.logger.Warn().Err(err).Msg("publishing run failed")
		}
	}
}
