package db

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned when no schedule run exists with the given ID
var ErrRunNotFound = errors.New("schedule run not found")

// RunStore defines the interface for schedule run persistence.
// The postgres.Store type implements it.
type RunStore interface {
	InsertRun(ctx context.Context, run *ScheduleRun) error
	GetRun(ctx context.Context, id string) (*ScheduleRun, error)
	ListRuns(ctx context.Context) ([]ScheduleRun, error)
}
