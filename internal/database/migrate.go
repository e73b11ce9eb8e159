package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_pipeline_runs.up.sql
var initialMigrationSQL string

//go:embed migrations/002_pipeline_orphans.up.sql
var orphanTrackingSQL string

var requiredTables = []string{
	"pipeline_runs",
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := db.hasAllRequiredTables(ctx)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}

	if !exists {
		slog.Info("database schema missing tables; applying initial migration")
		if _, err := db.Pool.Exec(ctx, initialMigrationSQL); err != nil {
			return fmt.Errorf("apply initial migration: %w", err)
		}

		exists, err = db.hasAllRequiredTables(ctx)
		if err != nil {
			return fmt.Errorf("re-check tables after migration: %w", err)
		}

		if !exists {
			return fmt.Errorf("schema initialization incomplete: required tables are still missing")
		}
	}

	// 002: orphan counter for failed runs.
	if err := db.applyOrphanTracking(ctx); err != nil {
		return fmt.Errorf("apply orphan tracking migration: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

// applyOrphanTracking runs migration 002 once. The SQL is idempotent.
func (db *DB) applyOrphanTracking(ctx context.Context) error {
	var hasColumn bool
	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public'
			  AND table_name = 'pipeline_runs'
			  AND column_name = 'orphan_count'
		)
	`).Scan(&hasColumn)
	if err != nil {
		return fmt.Errorf("check orphan_count column: %w", err)
	}

	if !hasColumn {
		slog.Info("applying orphan tracking migration (002)")
		if _, err := db.Pool.Exec(ctx, orphanTrackingSQL); err != nil {
			return fmt.Errorf("exec orphan tracking SQL: %w", err)
		}
	}

	return nil
}

func (db *DB) hasAllRequiredTables(ctx context.Context) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name = ANY($1)
	`, requiredTables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(requiredTables), nil
}
