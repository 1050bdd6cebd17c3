package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/greystones/roster/pkg/db"
)

// InsertRun inserts a new schedule run record
func (s *Store) InsertRun(ctx context.Context, run *db.ScheduleRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_runs (id, period_start, weeks, request, result, locked_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.PeriodStart, run.Weeks, run.Request, run.Result, run.LockedIDs)
	if err != nil {
		return fmt.Errorf("failed to insert schedule run: %w", err)
	}
	return nil
}

// GetRun retrieves a schedule run by ID
func (s *Store) GetRun(ctx context.Context, id string) (*db.ScheduleRun, error) {
	var run db.ScheduleRun
	err := s.pool.QueryRow(ctx, `
		SELECT id, created_at, period_start, weeks, request, result, locked_ids
		FROM schedule_runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.CreatedAt, &run.PeriodStart, &run.Weeks, &run.Request, &run.Result, &run.LockedIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves all schedule runs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]db.ScheduleRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, period_start, weeks, request, result, locked_ids
		FROM schedule_runs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule runs: %w", err)
	}
	defer rows.Close()

	var runs []db.ScheduleRun
	for rows.Next() {
		var run db.ScheduleRun
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.PeriodStart, &run.Weeks, &run.Request, &run.Result, &run.LockedIDs); err != nil {
			return nil, fmt.Errorf("failed to scan schedule run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule runs: %w", err)
	}

	return runs, nil
}
