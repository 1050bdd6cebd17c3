// Package calendar expands a planning period and season rules into the
// ordered block demand the assignment engine fills. Ordering is the basis for
// determinism downstream: dates ascending, locations in declared order
// (Greystones, Beach Shop, Boat), blocks within a location in declared order.
package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/greystones/roster/pkg/core/model"
)

// Season classifies a date under the season rules.
type Season string

const (
	SeasonClosed   Season = "closed"
	SeasonShoulder Season = "shoulder"
	SeasonPeak     Season = "peak"
)

// ConfigurationError reports malformed or incomplete location/hours/season
// input. It is rejected before any assignment attempt.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Block is one staffing window of one location on one date.
type Block struct {
	Date     time.Time
	DateStr  string
	Location model.LocationID
	Label    string
	StartMin int
	EndMin   int
	Start    string
	End      string

	Headcount      int
	LeaderRequired bool
	// RequiredRole, when set, makes this a role-specific block
	// (headcount-of-one boat runs needing a qualified captain).
	RequiredRole model.Role

	Season  Season
	Weekend bool
}

type cutoffs struct {
	victoriaDay time.Time
	june30      time.Time
	labourDay   time.Time
	oct31       time.Time
}

func parseCutoffs(rules model.SeasonRules) (cutoffs, error) {
	var c cutoffs
	var err error
	if c.victoriaDay, err = model.ParseDate(rules.VictoriaDay); err != nil {
		return c, err
	}
	if c.june30, err = model.ParseDate(rules.June30); err != nil {
		return c, err
	}
	if c.labourDay, err = model.ParseDate(rules.LabourDay); err != nil {
		return c, err
	}
	if c.oct31, err = model.ParseDate(rules.Oct31); err != nil {
		return c, err
	}
	if !c.victoriaDay.Before(c.june30) || !c.june30.Before(c.labourDay) || !c.labourDay.Before(c.oct31) {
		return c, &ConfigurationError{
			Field:  "season_rules",
			Reason: "cutoff dates must be strictly increasing",
		}
	}
	return c, nil
}

// classify returns the season of a date. The peak season runs from the day
// after June 30 through Labour Day inclusive; the shoulder windows run from
// Victoria Day through June 30 and from the day after Labour Day through
// Oct 31. Everything else is closed.
func (c cutoffs) classify(d time.Time) Season {
	switch {
	case d.After(c.june30) && !d.After(c.labourDay):
		return SeasonPeak
	case !d.Before(c.victoriaDay) && !d.After(c.june30):
		return SeasonShoulder
	case d.After(c.labourDay) && !d.After(c.oct31):
		return SeasonShoulder
	default:
		return SeasonClosed
	}
}

var rruleWeekdays = map[string]rrule.Weekday{
	"mon": rrule.MO, "tue": rrule.TU, "wed": rrule.WE, "thu": rrule.TH,
	"fri": rrule.FR, "sat": rrule.SA, "sun": rrule.SU,
}

// datesBetween expands a recurrence pattern over [start, end] inclusive.
func datesBetween(start, end time.Time, freq rrule.Frequency, byday []rrule.Weekday) ([]time.Time, error) {
	if end.Before(start) {
		return nil, nil
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      freq,
		Dtstart:   start,
		Until:     end,
		Byweekday: byday,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}
	return rule.All(), nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// greystonesOpenDates returns the store's open dates within the period, in
// ascending order. An explicit open_weekdays override replaces the
// season-derived pattern: daily during peak, weekends during the shoulder
// windows, closed otherwise.
func greystonesOpenDates(req *model.ScheduleRequest, c cutoffs, periodStart, periodEnd time.Time) ([]time.Time, error) {
	if len(req.OpenWeekdays) > 0 {
		byday := make([]rrule.Weekday, 0, len(req.OpenWeekdays))
		for _, key := range req.OpenWeekdays {
			byday = append(byday, rruleWeekdays[key])
		}
		return datesBetween(periodStart, periodEnd, rrule.WEEKLY, byday)
	}

	weekend := []rrule.Weekday{rrule.SA, rrule.SU}
	var open []time.Time

	// Shoulder window 1: Victoria Day through June 30, weekends only.
	dates, err := datesBetween(laterOf(periodStart, c.victoriaDay), earlierOf(periodEnd, c.june30), rrule.WEEKLY, weekend)
	if err != nil {
		return nil, err
	}
	open = append(open, dates...)

	// Peak: July 1 through Labour Day, daily.
	dates, err = datesBetween(laterOf(periodStart, c.june30.AddDate(0, 0, 1)), earlierOf(periodEnd, c.labourDay), rrule.DAILY, nil)
	if err != nil {
		return nil, err
	}
	open = append(open, dates...)

	// Shoulder window 2: day after Labour Day through Oct 31, weekends only.
	dates, err = datesBetween(laterOf(periodStart, c.labourDay.AddDate(0, 0, 1)), earlierOf(periodEnd, c.oct31), rrule.WEEKLY, weekend)
	if err != nil {
		return nil, err
	}
	open = append(open, dates...)

	// The three windows are disjoint, so concatenation stays sorted.
	return open, nil
}

// BuildDemand expands the request into the ordered block sequence the engine
// fills. It fails with a ConfigurationError when a location is marked open
// without operating hours or the season cutoffs are not strictly increasing.
func BuildDemand(req *model.ScheduleRequest) ([]Block, error) {
	c, err := parseCutoffs(req.SeasonRules)
	if err != nil {
		return nil, err
	}

	periodStart, err := model.ParseDate(req.Period.StartDate)
	if err != nil {
		return nil, err
	}
	periodEnd := periodStart.AddDate(0, 0, req.Period.Weeks*7-1)

	openDates, err := greystonesOpenDates(req, c, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(openDates) == 0 {
		return nil, nil
	}

	storeStart, storeEnd, err := parseHours("hours.greystones", req.Hours.Greystones)
	if err != nil {
		return nil, err
	}

	shopEnabled := req.Hours.BeachShop.IsEnabled() && req.Coverage.BeachShopStaff > 0
	var shopStart, shopEnd int
	if shopEnabled {
		shopStart, shopEnd, err = parseHours("hours.beach_shop", req.Hours.BeachShop.LocationHours)
		if err != nil {
			return nil, err
		}
	}

	boatEnabled := req.Hours.Boat.IsEnabled()
	type boatRun struct {
		label    string
		startMin int
		endMin   int
	}
	var runs []boatRun
	if boatEnabled {
		for i, r := range req.Hours.Boat.Runs {
			startMin, err := model.ParseClock(r.Start)
			if err != nil {
				return nil, &ConfigurationError{Field: fmt.Sprintf("hours.boat.runs[%d]", i), Reason: err.Error()}
			}
			endMin, err := model.ParseClock(r.End)
			if err != nil {
				return nil, &ConfigurationError{Field: fmt.Sprintf("hours.boat.runs[%d]", i), Reason: err.Error()}
			}
			if endMin <= startMin {
				return nil, &ConfigurationError{Field: fmt.Sprintf("hours.boat.runs[%d]", i), Reason: "run end must be after start"}
			}
			label := r.Label
			if label == "" {
				label = fmt.Sprintf("run-%d", i+1)
			}
			runs = append(runs, boatRun{label: label, startMin: startMin, endMin: endMin})
		}
	}

	var blocks []Block
	for _, d := range openDates {
		season := c.classify(d)
		if req.ShoulderSeason {
			season = SeasonShoulder
		} else if season == SeasonClosed {
			// Force-opened via open_weekdays outside the season windows:
			// treat as shoulder so shoulder-season exemptions apply.
			season = SeasonShoulder
		}
		weekend := model.IsWeekend(d)
		dateStr := d.Format(model.DateLayout)

		headcount := req.Coverage.GreystonesWeekdayStaff
		if weekend {
			headcount = req.Coverage.GreystonesWeekendStaff
		}
		blocks = append(blocks, Block{
			Date:           d,
			DateStr:        dateStr,
			Location:       model.LocationGreystones,
			Label:          "floor",
			StartMin:       storeStart,
			EndMin:         storeEnd,
			Start:          model.FormatClock(storeStart),
			End:            model.FormatClock(storeEnd),
			Headcount:      headcount,
			LeaderRequired: req.LeadershipRules.MinTeamLeadersEveryOpenDay > 0,
			Season:         season,
			Weekend:        weekend,
		})

		// The shop opens on peak-season weekends only.
		if shopEnabled && weekend && season == SeasonPeak {
			blocks = append(blocks, Block{
				Date:      d,
				DateStr:   dateStr,
				Location:  model.LocationBeachShop,
				Label:     "floor",
				StartMin:  shopStart,
				EndMin:    shopEnd,
				Start:     model.FormatClock(shopStart),
				End:       model.FormatClock(shopEnd),
				Headcount: req.Coverage.BeachShopStaff,
				Season:    season,
				Weekend:   weekend,
			})
		}

		// The boat runs every day the store is open.
		if boatEnabled {
			for _, r := range runs {
				blocks = append(blocks, Block{
					Date:         d,
					DateStr:      dateStr,
					Location:     model.LocationBoat,
					Label:        r.label,
					StartMin:     r.startMin,
					EndMin:       r.endMin,
					Start:        model.FormatClock(r.startMin),
					End:          model.FormatClock(r.endMin),
					Headcount:    1,
					RequiredRole: model.RoleBoatCaptain,
					Season:       season,
					Weekend:      weekend,
				})
			}
		}
	}

	return blocks, nil
}

func parseHours(field string, h model.LocationHours) (int, int, error) {
	if h.Start == "" || h.End == "" {
		return 0, 0, &ConfigurationError{Field: field, Reason: "location is open but has no operating hours"}
	}
	startMin, err := model.ParseClock(h.Start)
	if err != nil {
		return 0, 0, &ConfigurationError{Field: field, Reason: err.Error()}
	}
	endMin, err := model.ParseClock(h.End)
	if err != nil {
		return 0, 0, &ConfigurationError{Field: field, Reason: err.Error()}
	}
	if endMin <= startMin {
		return 0, 0, &ConfigurationError{Field: field, Reason: "closing time must be after opening time"}
	}
	return startMin, endMin, nil
}

// WeekIndex returns the zero-based week of the period a date falls in.
func WeekIndex(periodStart, d time.Time) int {
	return int(d.Sub(periodStart).Hours()/24) / 7
}
