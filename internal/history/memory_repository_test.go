package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangecast/rangecast/internal/band"
	"github.com/rangecast/rangecast/internal/estimator"
	"github.com/rangecast/rangecast/internal/isoline"
)

func completeRun(id string) *estimator.RunResult {
	geom := &isoline.Geometry{Polygons: []isoline.Polygon{{Rings: []isoline.Ring{{
		{Lat: 57, Lon: 11}, {Lat: 57, Lon: 12}, {Lat: 58, Lon: 12}, {Lat: 57, Lon: 11},
	}}}}}
	return &estimator.RunResult{
		RunID: id,
		Bands: []estimator.BandResult{
			{Band: band.DefaultBands()[0], DistanceKm: 400, Geometry: geom},
		},
	}
}

func failedRun(id string) *estimator.RunResult {
	return &estimator.RunResult{
		RunID:   id,
		Partial: true,
		Bands: []estimator.BandResult{
			{Band: band.DefaultBands()[0], DistanceKm: 400, FailureReason: estimator.FailureTimeout},
		},
	}
}

func TestMemoryRepositoryLatest(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()

	_, err := repo.Latest(ctx)
	require.ErrorIs(t, err, ErrNoRuns)

	require.NoError(t, repo.Save(ctx, completeRun("run-1")))
	require.NoError(t, repo.Save(ctx, completeRun("run-2")))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)
}

func TestMemoryRepositoryLatestComplete(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, completeRun("run-1")))
	require.NoError(t, repo.Save(ctx, failedRun("run-2")))

	// Latest is the failed run, but LatestComplete skips back to run-1.
	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)

	complete, err := repo.LatestComplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", complete.RunID)
}

func TestMemoryRepositoryLatestCompleteNoneRecorded(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, failedRun("run-1")))

	_, err := repo.LatestComplete(ctx)
	require.ErrorIs(t, err, ErrNoRuns)
}

func TestMemoryRepositoryCapsSize(t *testing.T) {
	repo := NewMemoryRepository(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, completeRun(fmt.Sprintf("run-%d", i))))
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-4", latest.RunID)

	require.NoError(t, repo.Prune(ctx, 1))
	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-4", latest.RunID)

	require.NoError(t, repo.Prune(ctx, 0))
	_, err = repo.Latest(ctx)
	require.ErrorIs(t, err, ErrNoRuns)
}
