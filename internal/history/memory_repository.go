package history

import (
	"context"
	"sync"

	"github.com/rangecast/rangecast/internal/estimator"
)

// MemoryRepository is an in-memory run store for single-instance deployments
// and tests. Runs are kept newest-first.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs []*estimator.RunResult
	max  int
}

// NewMemoryRepository creates an in-memory repository holding at most max
// runs (default 50).
func NewMemoryRepository(max int) *MemoryRepository {
	if max <= 0 {
		max = 50
	}
	return &MemoryRepository{max: max}
}

// Save records a completed run.
func (r *MemoryRepository) Save(_ context.Context, result *estimator.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append([]*estimator.RunResult{result}, r.runs...)
	if len(r.runs) > r.max {
		r.runs = r.runs[:r.max]
	}
	return nil
}

// Latest returns the most recent run.
func (r *MemoryRepository) Latest(_ context.Context) (*estimator.RunResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.runs) == 0 {
		return nil, ErrNoRuns
	}
	return r.runs[0], nil
}

// LatestComplete returns the most recent non-partial run with polygons.
func (r *MemoryRepository) LatestComplete(_ context.Context) (*estimator.RunResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, run := range r.runs {
		if !run.Partial && run.PolygonCount() > 0 {
			return run, nil
		}
	}
	return nil, ErrNoRuns
}

// Prune removes all but the newest keep runs.
func (r *MemoryRepository) Prune(_ context.Context, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if keep >= 0 && len(r.runs) > keep {
		r.runs = r.runs[:keep]
	}
	return nil
}
