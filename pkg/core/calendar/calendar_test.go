package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greystones/roster/pkg/core/model"
)

func boolPtr(b bool) *bool { return &b }

func demandRequest(start string, weeks int) *model.ScheduleRequest {
	return &model.ScheduleRequest{
		Period: model.Period{StartDate: start, Weeks: weeks},
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
			GreystonesWeekendStaff: 2,
		},
	}
}

func TestBuildDemand_PeakWeekOpensDaily(t *testing.T) {
	req := demandRequest("2025-07-07", 1)

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 7)

	for i, b := range blocks {
		assert.Equal(t, model.LocationGreystones, b.Location)
		assert.Equal(t, "floor", b.Label)
		assert.Equal(t, SeasonPeak, b.Season)
		assert.Equal(t, "09:00", b.Start)
		assert.Equal(t, "17:00", b.End)

		want := time.Date(2025, 7, 7+i, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
		assert.Equal(t, want, b.DateStr)
	}

	// Weekday and weekend targets diverge.
	assert.Equal(t, 1, blocks[0].Headcount)
	assert.True(t, blocks[5].Weekend)
	assert.Equal(t, 2, blocks[5].Headcount)
	assert.Equal(t, 2, blocks[6].Headcount)
}

func TestBuildDemand_ShoulderWeekOpensWeekendsOnly(t *testing.T) {
	req := demandRequest("2025-06-02", 1)

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, "2025-06-07", blocks[0].DateStr)
	assert.Equal(t, "2025-06-08", blocks[1].DateStr)
	for _, b := range blocks {
		assert.Equal(t, SeasonShoulder, b.Season)
		assert.True(t, b.Weekend)
	}
}

func TestBuildDemand_BeachShopOpensOnPeakWeekendsOnly(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.Hours.BeachShop = model.SeasonalHours{
		LocationHours: model.LocationHours{Start: "10:00", End: "18:00"},
	}
	req.Coverage.BeachShopStaff = 1

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 9)

	var shop []Block
	for _, b := range blocks {
		if b.Location == model.LocationBeachShop {
			shop = append(shop, b)
		}
	}
	require.Len(t, shop, 2)
	assert.Equal(t, "2025-07-12", shop[0].DateStr)
	assert.Equal(t, "2025-07-13", shop[1].DateStr)

	// No shop blocks in a shoulder week even when enabled.
	req = demandRequest("2025-06-02", 1)
	req.Hours.BeachShop = model.SeasonalHours{
		LocationHours: model.LocationHours{Start: "10:00", End: "18:00"},
	}
	req.Coverage.BeachShopStaff = 1
	blocks, err = BuildDemand(req)
	require.NoError(t, err)
	for _, b := range blocks {
		assert.NotEqual(t, model.LocationBeachShop, b.Location)
	}
}

func TestBuildDemand_BoatRunsEveryOpenDay(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.Hours.Boat = model.BoatHours{
		Runs: []model.RunBlock{
			{Start: "10:00", End: "12:00"},
			{Label: "sunset", Start: "18:00", End: "20:00"},
		},
	}

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 21)

	var boat []Block
	for _, b := range blocks {
		if b.Location == model.LocationBoat {
			boat = append(boat, b)
		}
	}
	require.Len(t, boat, 14)
	assert.Equal(t, "run-1", boat[0].Label)
	assert.Equal(t, "sunset", boat[1].Label)
	for _, b := range boat {
		assert.Equal(t, 1, b.Headcount)
		assert.Equal(t, model.RoleBoatCaptain, b.RequiredRole)
	}
}

func TestBuildDemand_BoatDisabledByFlag(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.Hours.Boat = model.BoatHours{
		Enabled: boolPtr(false),
		Runs:    []model.RunBlock{{Start: "10:00", End: "12:00"}},
	}

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	for _, b := range blocks {
		assert.NotEqual(t, model.LocationBoat, b.Location)
	}
}

func TestBuildDemand_BlockOrderIsDateThenLocation(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.Hours.BeachShop = model.SeasonalHours{
		LocationHours: model.LocationHours{Start: "10:00", End: "18:00"},
	}
	req.Coverage.BeachShopStaff = 1
	req.Hours.Boat = model.BoatHours{
		Runs: []model.RunBlock{{Start: "10:00", End: "12:00"}},
	}

	blocks, err := BuildDemand(req)
	require.NoError(t, err)

	for i := 1; i < len(blocks); i++ {
		prev, next := blocks[i-1], blocks[i]
		if prev.DateStr == next.DateStr {
			assert.LessOrEqual(t, model.LocationRank(prev.Location), model.LocationRank(next.Location))
		} else {
			assert.Less(t, prev.DateStr, next.DateStr)
		}
	}
}

func TestBuildDemand_RejectsNonIncreasingCutoffs(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.SeasonRules.LabourDay = "2025-06-01"

	_, err := BuildDemand(req)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "season_rules", cfgErr.Field)
}

func TestBuildDemand_RejectsOpenLocationWithoutHours(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.Hours.Greystones = model.LocationHours{}

	_, err := BuildDemand(req)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "hours.greystones", cfgErr.Field)
}

func TestBuildDemand_RejectsInvertedBoatRun(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.Hours.Boat = model.BoatHours{
		Runs: []model.RunBlock{{Start: "12:00", End: "10:00"}},
	}

	_, err := BuildDemand(req)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "hours.boat.runs[0]", cfgErr.Field)
}

func TestBuildDemand_OpenWeekdaysOverrideForcesShoulderDays(t *testing.T) {
	req := demandRequest("2025-06-02", 1)
	req.OpenWeekdays = []string{"mon", "tue"}

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "2025-06-02", blocks[0].DateStr)
	assert.Equal(t, "2025-06-03", blocks[1].DateStr)
	for _, b := range blocks {
		assert.Equal(t, SeasonShoulder, b.Season)
	}
}

func TestBuildDemand_ClosedSeasonOverrideClassifiesShoulder(t *testing.T) {
	// January is outside every season window; forcing it open classifies
	// the days as shoulder so the shoulder exemptions apply.
	req := demandRequest("2025-01-06", 1)
	req.OpenWeekdays = []string{"sat"}

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "2025-01-11", blocks[0].DateStr)
	assert.Equal(t, SeasonShoulder, blocks[0].Season)
}

func TestBuildDemand_ClosedPeriodYieldsNoBlocks(t *testing.T) {
	req := demandRequest("2025-01-06", 1)

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestBuildDemand_ShoulderSeasonFlagOverridesPeak(t *testing.T) {
	req := demandRequest("2025-07-07", 1)
	req.ShoulderSeason = true

	blocks, err := BuildDemand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 7)
	for _, b := range blocks {
		assert.Equal(t, SeasonShoulder, b.Season)
	}
}

func TestWeekIndex(t *testing.T) {
	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WeekIndex(start, start))
	assert.Equal(t, 0, WeekIndex(start, start.AddDate(0, 0, 6)))
	assert.Equal(t, 1, WeekIndex(start, start.AddDate(0, 0, 7)))
	assert.Equal(t, 1, WeekIndex(start, start.AddDate(0, 0, 13)))
}
