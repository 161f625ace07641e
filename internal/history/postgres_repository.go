package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rangecast/rangecast/internal/estimator"
)

// PostgresRepository is a PostgreSQL implementation of Repository. The full
// run result is stored as JSONB with a few columns broken out for queries.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL run repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Schema is the table the repository expects. Applied by deployment
// migrations, kept here as the single source of truth.
const Schema = `
CREATE TABLE IF NOT EXISTS range_runs (
	id           UUID PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL,
	partial      BOOLEAN NOT NULL,
	polygons     INT NOT NULL,
	max_range_km DOUBLE PRECISION NOT NULL,
	soc          DOUBLE PRECISION NOT NULL,
	payload      JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS range_runs_created_at_idx ON range_runs (created_at DESC);
`

// EnsureSchema creates the runs table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

// Save records a completed run.
func (r *PostgresRepository) Save(ctx context.Context, result *estimator.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}

	query := `
		INSERT INTO range_runs (id, created_at, partial, polygons, max_range_km, soc, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		result.RunID,
		result.Timestamp,
		result.Partial,
		result.PolygonCount(),
		result.MaxRangeKm(),
		result.Vehicle.SoC,
		payload,
	)
	return err
}

// Latest returns the most recent run.
func (r *PostgresRepository) Latest(ctx context.Context) (*estimator.RunResult, error) {
	query := `
		SELECT payload FROM range_runs
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanRun(ctx, query)
}

// LatestComplete returns the most recent non-partial run with polygons.
func (r *PostgresRepository) LatestComplete(ctx context.Context) (*estimator.RunResult, error) {
	query := `
		SELECT payload FROM range_runs
		WHERE NOT partial AND polygons > 0
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanRun(ctx, query)
}

// Prune removes all but the newest keep runs.
func (r *PostgresRepository) Prune(ctx context.Context, keep int) error {
	query := `
		DELETE FROM range_runs
		WHERE id NOT IN (
			SELECT id FROM range_runs
			ORDER BY created_at DESC
			LIMIT $1
		)
	`
	_, err := r.pool.Exec(ctx, query, keep)
	return err
}

func (r *PostgresRepository) scanRun(ctx context.Context, query string, args ...interface{}) (*estimator.RunResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, query, args...).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRuns
		}
		return nil, err
	}

	var result estimator.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling run: %w", err)
	}
	return &result, nil
}
