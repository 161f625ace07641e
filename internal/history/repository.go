// Package history stores completed estimation runs so the API can serve the
// latest result and the renderer has a fallback when a run fails.
package history

import (
	"context"
	"errors"

	"github.com/rangecast/rangecast/internal/estimator"
)

// Repository errors.
var (
	// ErrNoRuns indicates no run has been recorded yet.
	ErrNoRuns = errors.New("no runs recorded")
)

// Repository persists estimation runs.
type Repository interface {
	// Save records a completed run.
	Save(ctx context.Context, result *estimator.RunResult) error

	// Latest returns the most recent run.
	Latest(ctx context.Context) (*estimator.RunResult, error)

	// LatestComplete returns the most recent non-partial run with at least
	// one polygon, the renderer's fallback when the latest run failed.
	LatestComplete(ctx context.Context) (*estimator.RunResult, error)

	// Prune removes all but the newest keep runs.
	Prune(ctx context.Context, keep int) error
}
