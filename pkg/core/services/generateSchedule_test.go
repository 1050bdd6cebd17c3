package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greystones/roster/pkg/core/engine"
	"github.com/greystones/roster/pkg/core/model"
	"github.com/greystones/roster/pkg/db"
)

// fakeRunStore keeps runs in memory for service tests.
type fakeRunStore struct {
	runs      map[string]*db.ScheduleRun
	insertErr error
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[string]*db.ScheduleRun)}
}

func (s *fakeRunStore) InsertRun(_ context.Context, run *db.ScheduleRun) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.runs[run.ID] = run
	return nil
}

func (s *fakeRunStore) GetRun(_ context.Context, id string) (*db.ScheduleRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, db.ErrRunNotFound
	}
	return run, nil
}

func serviceRequest() *model.ScheduleRequest {
	return &model.ScheduleRequest{
		Period: model.Period{StartDate: "2025-07-07", Weeks: 1},
		SeasonRules: model.SeasonRules{
			VictoriaDay: "2025-05-19",
			June30:      "2025-06-30",
			LabourDay:   "2025-09-01",
			Oct31:       "2025-10-31",
		},
		Hours: model.Hours{
			Greystones: model.LocationHours{Start: "09:00", End: "17:00"},
		},
		Coverage: model.Coverage{
			GreystonesWeekdayStaff: 1,
			GreystonesWeekendStaff: 1,
		},
		LeadershipRules: model.LeadershipRules{
			WeekendTeamLeadersIfManagerOff: 1,
		},
		Employees: []model.Employee{
			{
				ID:              "e1",
				Name:            "Avery",
				Roles:           []model.Role{model.RoleStoreClerk},
				MaxHoursPerWeek: 40,
				PriorityTier:    model.TierA,
				Availability: map[string][]string{
					"mon": {"09:00-17:00"}, "tue": {"09:00-17:00"},
					"wed": {"09:00-17:00"}, "thu": {"09:00-17:00"},
					"fri": {"09:00-17:00"}, "sat": {"09:00-17:00"},
					"sun": {"09:00-17:00"},
				},
			},
		},
	}
}

func TestGenerateSchedule_SavesRun(t *testing.T) {
	store := newFakeRunStore()

	out, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.True(t, out.Saved)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, out.RunID, out.Result.RunID)

	saved, ok := store.runs[out.RunID]
	require.True(t, ok)
	assert.Equal(t, "2025-07-07", saved.PeriodStart)
	assert.Equal(t, 1, saved.Weeks)
	assert.NotEmpty(t, saved.Request)
	assert.NotEmpty(t, saved.Result)
}

func TestGenerateSchedule_DryRunSkipsSave(t *testing.T) {
	store := newFakeRunStore()

	out, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, true)
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.Empty(t, store.runs)
}

func TestGenerateSchedule_NilStoreSkipsSave(t *testing.T) {
	out, err := GenerateSchedule(context.Background(), nil, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.NotNil(t, out.Result)
}

func TestGenerateSchedule_RejectsInvalidRequest(t *testing.T) {
	req := serviceRequest()
	req.Employees[0].MinHoursPerWeek = 50

	_, err := GenerateSchedule(context.Background(), newFakeRunStore(), zap.NewNop(), req, engine.Options{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule request")
}

func TestGenerateSchedule_SurfacesStoreError(t *testing.T) {
	store := newFakeRunStore()
	store.insertErr = fmt.Errorf("connection reset")

	_, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save run")
}

func TestLoadRun_RoundTripsStoredRun(t *testing.T) {
	store := newFakeRunStore()

	out, err := GenerateSchedule(context.Background(), store, zap.NewNop(), serviceRequest(), engine.Options{}, false)
	require.NoError(t, err)

	req, result, err := LoadRun(context.Background(), store, out.RunID)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-07", req.Period.StartDate)
	assert.Equal(t, len(out.Result.Assignments), len(result.Assignments))
}

func TestLoadRun_UnknownRun(t *testing.T) {
	_, _, err := LoadRun(context.Background(), newFakeRunStore(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrRunNotFound)
}
