package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/pipeline"
)

const maxListLimit = 500

// PipelineRunRepository journals pipeline run snapshots in Postgres. The full
// run is stored as JSONB; the scalar columns serve filtering and ordering.
type PipelineRunRepository struct {
	pool *pgxpool.Pool
}

func NewPipelineRunRepository(pool *pgxpool.Pool) *PipelineRunRepository {
	return &PipelineRunRepository{pool: pool}
}

func (r *PipelineRunRepository) Save(ctx context.Context, run pipeline.Run) error {
	snapshot, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode pipeline run: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, story_id, panel_id, state, failed_step, error,
		  created_by, orphan_count, snapshot, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		  state = EXCLUDED.state,
		  failed_step = EXCLUDED.failed_step,
		  error = EXCLUDED.error,
		  orphan_count = EXCLUDED.orphan_count,
		  snapshot = EXCLUDED.snapshot,
		  updated_at = EXCLUDED.updated_at`,
		run.ID, run.StoryID, run.PanelID, string(run.State), string(run.FailedStep), run.Error,
		run.CreatedBy, len(run.Orphans), snapshot, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save pipeline run: %w", err)
	}
	return nil
}

func (r *PipelineRunRepository) Get(ctx context.Context, id string) (pipeline.Run, error) {
	var snapshot []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM pipeline_runs WHERE id::text = $1`, id).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.Run{}, model.ErrRunNotFound
	}
	if err != nil {
		return pipeline.Run{}, fmt.Errorf("find pipeline run: %w", err)
	}

	return decodeRun(snapshot)
}

// List returns the newest runs first.
func (r *PipelineRunRepository) List(ctx context.Context, limit int) ([]pipeline.Run, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT snapshot FROM pipeline_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	runs := make([]pipeline.Run, 0)
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		run, err := decodeRun(snapshot)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListWithOrphans returns failed runs that left uploaded assets behind.
func (r *PipelineRunRepository) ListWithOrphans(ctx context.Context, limit int) ([]pipeline.Run, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT snapshot FROM pipeline_runs WHERE orphan_count > 0 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphaned pipeline runs: %w", err)
	}
	defer rows.Close()

	runs := make([]pipeline.Run, 0)
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		run, err := decodeRun(snapshot)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func decodeRun(snapshot []byte) (pipeline.Run, error) {
	var run pipeline.Run
	if err := json.Unmarshal(snapshot, &run); err != nil {
		return pipeline.Run{}, fmt.Errorf("decode pipeline run: %w", err)
	}
	return run, nil
}
