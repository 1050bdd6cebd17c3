package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Role is a qualification an employee may hold. An employee can hold several;
// the engine records exactly one role per assignment.
type Role string

const (
	RoleStoreClerk   Role = "Store Clerk"
	RoleTeamLeader   Role = "Team Leader"
	RoleStoreManager Role = "Store Manager"
	RoleBoatCaptain  Role = "Boat Captain"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStoreClerk, RoleTeamLeader, RoleStoreManager, RoleBoatCaptain:
		return true
	}
	return false
}

// Leads reports whether the role counts as leadership coverage.
func (r Role) Leads() bool {
	return r == RoleTeamLeader || r == RoleStoreManager
}

// Tier is the priority classification governing how aggressively the engine
// seeks to give an employee hours. A is prioritized, C fills gaps.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

func (t Tier) IsValid() bool {
	return t == TierA || t == TierB || t == TierC
}

// Rank returns the sort position of the tier (A before B before C).
func (t Tier) Rank() int {
	switch t {
	case TierA:
		return 0
	case TierB:
		return 1
	default:
		return 2
	}
}

// LocationID identifies one of the three staffed locations.
type LocationID string

const (
	LocationGreystones LocationID = "Greystones"
	LocationBeachShop  LocationID = "Beach Shop"
	LocationBoat       LocationID = "Boat"
)

// LocationRank returns the declared processing order of a location. Demand is
// always expanded store, then shop, then boat; this ordering is part of the
// determinism contract, not an implementation accident.
func LocationRank(l LocationID) int {
	switch l {
	case LocationGreystones:
		return 0
	case LocationBeachShop:
		return 1
	case LocationBoat:
		return 2
	}
	return 3
}

// DayKeys lists the weekday keys used in availability maps, Monday first.
var DayKeys = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DayKey returns the availability map key for a date.
func DayKey(d time.Time) string {
	// time.Weekday has Sunday == 0; availability keys start on Monday
	return DayKeys[(int(d.Weekday())+6)%7]
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// ParseClock parses a zero-padded HH:MM clock time into minutes since
// midnight. Exactly five bytes, all digits around the colon.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	for i := 0; i < 5; i++ {
		if i == 2 {
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Window is a half-open availability window within a single day, in minutes
// since midnight.
type Window struct {
	Start int
	End   int
}

// Covers reports whether the window fully contains the given range.
func (w Window) Covers(start, end int) bool {
	return w.Start <= start && w.End >= end
}

// ParseWindow parses an "HH:MM-HH:MM" availability window.
func ParseWindow(s string) (Window, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid availability window %q", s)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid availability window %q: %w", s, err)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid availability window %q: %w", s, err)
	}
	if end <= start {
		return Window{}, fmt.Errorf("invalid availability window %q: end not after start", s)
	}
	return Window{Start: start, End: end}, nil
}

// ShiftHours returns the length of a start/end minute range in hours, rounded
// to two decimals the way totals are reported.
func ShiftHours(startMin, endMin int) float64 {
	return math.Round(float64(endMin-startMin)/60*100) / 100
}
