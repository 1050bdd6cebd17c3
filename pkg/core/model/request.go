package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Period is the planning window: a start date and a number of whole weeks.
type Period struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Weeks     int    `json:"weeks" validate:"required,min=1,max=2"`
}

// SeasonRules carries the calendar cutoff dates that classify each date as
// in-season, shoulder season or closed. Cutoffs must be strictly increasing.
type SeasonRules struct {
	VictoriaDay string `json:"victoria_day" validate:"required,datetime=2006-01-02"`
	June30      string `json:"june_30" validate:"required,datetime=2006-01-02"`
	LabourDay   string `json:"labour_day" validate:"required,datetime=2006-01-02"`
	Oct31       string `json:"oct_31" validate:"required,datetime=2006-01-02"`
}

// LocationHours is a simple open/close pair for a store location. Hours may
// be absent for a location that is closed this period; the demand builder
// rejects an open location without hours.
type LocationHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SeasonalHours is store hours plus a per-period enabled toggle.
// A nil Enabled means enabled.
type SeasonalHours struct {
	LocationHours
	Enabled *bool `json:"enabled,omitempty"`
}

// IsEnabled reports whether the location participates in this planning period.
func (h SeasonalHours) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// RunBlock is one boat run window. Label defaults to "run-N" by position.
type RunBlock struct {
	Label string `json:"label,omitempty"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// BoatHours lists the boat service's run blocks. The boat is enabled when it
// has at least one run and Enabled is not explicitly false.
type BoatHours struct {
	Enabled *bool      `json:"enabled,omitempty"`
	Runs    []RunBlock `json:"runs,omitempty" validate:"dive"`
}

func (h BoatHours) IsEnabled() bool {
	return len(h.Runs) > 0 && (h.Enabled == nil || *h.Enabled)
}

// Hours holds the operating hours for every location.
type Hours struct {
	Greystones LocationHours `json:"greystones"`
	BeachShop  SeasonalHours `json:"beach_shop"`
	Boat       BoatHours     `json:"boat"`
}

// Coverage holds per-location headcount targets.
type Coverage struct {
	GreystonesWeekdayStaff int `json:"greystones_weekday_staff" validate:"min=0"`
	GreystonesWeekendStaff int `json:"greystones_weekend_staff" validate:"min=0"`
	BeachShopStaff         int `json:"beach_shop_staff" validate:"min=0"`

	// AllowFloat permits a second same-day assignment at another location
	// when the block time ranges do not overlap.
	AllowFloat bool `json:"allow_float"`
}

// LeadershipRules holds the leadership-coverage policy toggles.
type LeadershipRules struct {
	MinTeamLeadersEveryOpenDay          int  `json:"min_team_leaders_every_open_day" validate:"min=0"`
	WeekendTeamLeadersIfManagerOff      int  `json:"weekend_team_leaders_if_manager_off" validate:"min=0"`
	ManagerTwoConsecutiveDaysOffPerWeek bool `json:"manager_two_consecutive_days_off_per_week"`
	ManagerMinWeekendsPerMonth          int  `json:"manager_min_weekends_per_month" validate:"min=0"`

	// ManagerOrLeaderSatisfiesDailyRequirement controls whether a working
	// Store Manager counts toward the daily team-leader minimum.
	// Defaults to true when omitted.
	ManagerOrLeaderSatisfiesDailyRequirement *bool `json:"manager_or_leader_satisfies_daily_requirement,omitempty"`
}

// ManagerSatisfiesLeaderMinimum resolves the policy flag with its default.
func (r LeadershipRules) ManagerSatisfiesLeaderMinimum() bool {
	return r.ManagerOrLeaderSatisfiesDailyRequirement == nil || *r.ManagerOrLeaderSatisfiesDailyRequirement
}

// ConstraintRules overrides the configured hard-constraint defaults for one
// run. Zero values mean "use the configured default".
type ConstraintRules struct {
	MinRestHours            float64 `json:"min_rest_hours,omitempty" validate:"min=0"`
	MaxConsecutiveDays      int     `json:"max_consecutive_days,omitempty" validate:"min=0"`
	EmergencyClopenOverride bool    `json:"emergency_clopen_override,omitempty"`
}

// Employee is one schedulable staff member.
type Employee struct {
	ID                 string              `json:"id" validate:"required"`
	Name               string              `json:"name" validate:"required"`
	Roles              []Role              `json:"roles" validate:"required,min=1"`
	MinHoursPerWeek    float64             `json:"min_hours_per_week" validate:"min=0"`
	MaxHoursPerWeek    float64             `json:"max_hours_per_week" validate:"min=0"`
	PriorityTier       Tier                `json:"priority_tier" validate:"required"`
	Student            bool                `json:"student"`
	Availability       map[string][]string `json:"availability" validate:"required"`
	PreferredLocations []LocationID        `json:"preferred_locations,omitempty"`
}

// Unavailability is a hard per-date exclusion, independent of weekly windows.
type Unavailability struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason,omitempty"`
}

// AdHocBooking is a fixed bolt-on shift honored before generation. It does
// not consume coverage headcount; a booking that breaches a hard constraint
// is skipped and reported, never silently dropped.
type AdHocBooking struct {
	EmployeeID string     `json:"employee_id" validate:"required"`
	Date       string     `json:"date" validate:"required,datetime=2006-01-02"`
	Start      string     `json:"start" validate:"required"`
	End        string     `json:"end" validate:"required"`
	Location   LocationID `json:"location" validate:"required"`
	Note       string     `json:"note,omitempty"`
}

// History carries roll-forward facts from before the planning period.
type History struct {
	ManagerWeekendsWorkedThisMonth int `json:"manager_weekends_worked_this_month" validate:"min=0"`
}

// ScheduleRequest is the full declarative input of one engine run.
type ScheduleRequest struct {
	Period          Period          `json:"period" validate:"required"`
	SeasonRules     SeasonRules     `json:"season_rules" validate:"required"`
	Hours           Hours           `json:"hours" validate:"required"`
	Coverage        Coverage        `json:"coverage" validate:"required"`
	LeadershipRules LeadershipRules `json:"leadership_rules" validate:"required"`
	Constraints     ConstraintRules `json:"constraints,omitempty"`
	Employees       []Employee      `json:"employees" validate:"required,min=1,dive"`
	Unavailability  []Unavailability `json:"unavailability,omitempty" validate:"dive"`
	AdHocBookings   []AdHocBooking  `json:"ad_hoc_bookings,omitempty" validate:"dive"`
	History         History         `json:"history"`

	// ShoulderSeason forces shoulder classification for the whole period,
	// overriding the season cutoffs.
	ShoulderSeason bool `json:"shoulder_season,omitempty"`

	// OpenWeekdays overrides the season-derived open-day pattern for the
	// main store (keys mon..sun).
	OpenWeekdays []string `json:"open_weekdays,omitempty"`

	// RerollToken rotates deterministically among tied-best candidates.
	// Zero is the canonical ordering.
	RerollToken uint `json:"reroll_token,omitempty"`
}

var validate = validator.New()

// Validate performs structural validation of the request: field presence,
// enumerated role/tier values, date and clock formats, window ordering and
// the min<=max hours invariant. Anything it rejects is a hard failure back
// to the caller; season/hours completeness is the demand builder's concern.
func (r *ScheduleRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}

	seen := make(map[string]bool, len(r.Employees))
	for i := range r.Employees {
		e := &r.Employees[i]
		if seen[e.ID] {
			return fmt.Errorf("employees[%d]: duplicate employee id %q", i, e.ID)
		}
		seen[e.ID] = true

		if !e.PriorityTier.IsValid() {
			return fmt.Errorf("employees[%d] (%s): invalid priority tier %q", i, e.ID, e.PriorityTier)
		}
		for _, role := range e.Roles {
			if !role.IsValid() {
				return fmt.Errorf("employees[%d] (%s): invalid role %q", i, e.ID, role)
			}
		}
		if e.MinHoursPerWeek > e.MaxHoursPerWeek {
			return fmt.Errorf("employees[%d] (%s): min_hours_per_week %.1f exceeds max_hours_per_week %.1f",
				i, e.ID, e.MinHoursPerWeek, e.MaxHoursPerWeek)
		}
		if err := validateAvailability(e.Availability); err != nil {
			return fmt.Errorf("employees[%d] (%s): %w", i, e.ID, err)
		}
	}

	for i, u := range r.Unavailability {
		if !seen[u.EmployeeID] {
			return fmt.Errorf("unavailability[%d]: unknown employee id %q", i, u.EmployeeID)
		}
	}
	for i, b := range r.AdHocBookings {
		if !seen[b.EmployeeID] {
			return fmt.Errorf("ad_hoc_bookings[%d]: unknown employee id %q", i, b.EmployeeID)
		}
		if _, err := ParseClock(b.Start); err != nil {
			return fmt.Errorf("ad_hoc_bookings[%d]: %w", i, err)
		}
		if _, err := ParseClock(b.End); err != nil {
			return fmt.Errorf("ad_hoc_bookings[%d]: %w", i, err)
		}
		if LocationRank(b.Location) > 2 {
			return fmt.Errorf("ad_hoc_bookings[%d]: unknown location %q", i, b.Location)
		}
	}

	for i, key := range r.OpenWeekdays {
		if !isDayKey(key) {
			return fmt.Errorf("open_weekdays[%d]: unknown weekday key %q", i, key)
		}
	}

	return nil
}

func validateAvailability(availability map[string][]string) error {
	for key, windows := range availability {
		if !isDayKey(key) {
			return fmt.Errorf("availability: unknown weekday key %q", key)
		}
		prevEnd := -1
		for _, raw := range windows {
			w, err := ParseWindow(raw)
			if err != nil {
				return fmt.Errorf("availability[%s]: %w", key, err)
			}
			if w.Start < prevEnd {
				return fmt.Errorf("availability[%s]: windows overlap or are out of order at %q", key, raw)
			}
			prevEnd = w.End
		}
	}
	return nil
}

func isDayKey(key string) bool {
	for _, k := range DayKeys {
		if k == key {
			return true
		}
	}
	return false
}
