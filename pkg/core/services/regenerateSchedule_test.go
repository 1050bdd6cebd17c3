package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greystones/roster/pkg/core/engine"
	"github.com/greystones/roster/pkg/db"
)

func TestRegenerateSchedule_ReplaysLocksIntoNewRun(t *testing.T) {
	store := newFakeRunStore()

	first, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.NoError(t, err)
	require.NotEmpty(t, first.Result.Assignments)

	lockID := first.Result.Assignments[0].ID
	second, err := RegenerateSchedule(context.Background(), store, zap.NewNop(), first.RunID, []string{lockID}, engine.Options{}, false)
	require.NoError(t, err)
	assert.True(t, second.Saved)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []string{lockID}, second.Result.LockedIDs)

	locked, ok := second.Result.AssignmentByID(lockID)
	require.True(t, ok)
	assert.Equal(t, first.Result.Assignments[0].EmployeeID, locked.EmployeeID)

	// Both runs remain fetchable.
	_, _, err = LoadRun(context.Background(), store, first.RunID)
	require.NoError(t, err)
	_, _, err = LoadRun(context.Background(), store, second.RunID)
	require.NoError(t, err)
}

func TestRegenerateSchedule_DryRunSkipsSave(t *testing.T) {
	store := newFakeRunStore()

	first, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.NoError(t, err)

	out, err := RegenerateSchedule(context.Background(), store, zap.NewNop(), first.RunID, nil, engine.Options{}, true)
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.Len(t, store.runs, 1)
}

func TestRegenerateSchedule_UnknownPriorRun(t *testing.T) {
	_, err := RegenerateSchedule(context.Background(), newFakeRunStore(), zap.NewNop(), "missing", nil, engine.Options{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrRunNotFound)
}

func TestRegenerateSchedule_InvalidLockSurfaces(t *testing.T) {
	store := newFakeRunStore()

	first, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.NoError(t, err)

	_, err = RegenerateSchedule(context.Background(), store, zap.NewNop(), first.RunID, []string{"not-a-real-id"}, engine.Options{}, false)
	require.Error(t, err)

	var lockErr *engine.InvalidLockError
	assert.ErrorAs(t, err, &lockErr)
}
