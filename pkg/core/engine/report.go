package engine

import (
	"fmt"
	"sort"

	"github.com/greystones/roster/pkg/core/model"
)

// reportWeeklyChecks appends the violations that can only be judged against
// the accumulated totals: weekend leadership escalation, per-week minimum
// hours (skipped for shoulder-season weeks), manager rest pairs, consecutive
// day streaks and sub-minimum rest gaps that entered through locks or
// bolt-ons.
func (r *run) reportWeeklyChecks() {
	r.reportWeekendEscalation()
	r.reportMinimumHours()
	r.reportManagerDaysOff()
	r.reportStreaksAndRest()
}

// reportWeekendEscalation flags weekend open days where the manager is off
// and team-leader coverage falls below the escalated requirement.
func (r *run) reportWeekendEscalation() {
	need := r.req.LeadershipRules.WeekendTeamLeadersIfManagerOff
	if need == 0 {
		return
	}
	for i := range r.blocks {
		b := &r.blocks[i]
		if b.Location != model.LocationGreystones || !b.Weekend {
			continue
		}
		if r.managerDates[b.DateStr] {
			continue
		}
		leaders := 0
		for _, a := range r.assignments {
			if a.Date == b.DateStr && a.Role == model.RoleTeamLeader {
				leaders++
			}
		}
		if leaders < need {
			r.addViolation(model.Violation{
				Date:     b.DateStr,
				Location: b.Location,
				Block:    b.Label,
				Kind:     model.ViolationLeaderGap,
				Detail:   fmt.Sprintf("weekend requires %d team leader(s) when the manager is off, have %d", need, leaders),
			})
		}
	}
}

// reportMinimumHours checks each employee's weekly minimum. Enforcement is
// skipped for weeks whose demand is entirely shoulder-season.
func (r *run) reportMinimumHours() {
	for week := 0; week < r.req.Period.Weeks && week < 2; week++ {
		if !r.weekHasDemand[week] || r.weekShoulder[week] {
			continue
		}
		weekStart := r.start.AddDate(0, 0, week*7).Format(model.DateLayout)
		for _, es := range r.emps {
			if es.emp.MinHoursPerWeek <= 0 {
				continue
			}
			if es.weekHours[week] < es.emp.MinHoursPerWeek-1e-9 {
				r.addViolation(model.Violation{
					Date:       weekStart,
					Kind:       model.ViolationMinHoursUnmet,
					EmployeeID: es.emp.ID,
					Detail: fmt.Sprintf("week %d hours %.2f below minimum %.2f",
						week+1, es.weekHours[week], es.emp.MinHoursPerWeek),
				})
			}
		}
	}
}

// reportManagerDaysOff flags weeks in which a Store Manager has no pair of
// consecutive days off, when the policy requires one.
func (r *run) reportManagerDaysOff() {
	if !r.req.LeadershipRules.ManagerTwoConsecutiveDaysOffPerWeek {
		return
	}
	for _, es := range r.emps {
		if !es.roles[model.RoleStoreManager] {
			continue
		}
		for week := 0; week < r.req.Period.Weeks; week++ {
			weekStart := r.start.AddDate(0, 0, week*7)
			foundPair := false
			for i := 0; i < 6; i++ {
				d1 := weekStart.AddDate(0, 0, i).Format(model.DateLayout)
				d2 := weekStart.AddDate(0, 0, i+1).Format(model.DateLayout)
				if !es.worked[d1] && !es.worked[d2] {
					foundPair = true
					break
				}
			}
			if !foundPair {
				r.addViolation(model.Violation{
					Date:       weekStart.Format(model.DateLayout),
					Kind:       model.ViolationManagerDaysOff,
					EmployeeID: es.emp.ID,
					Detail:     fmt.Sprintf("no consecutive days off in week %d", week+1),
				})
			}
		}
	}
}

// reportStreaksAndRest surfaces hard-limit breaches that entered the roster
// through lock replays or ad-hoc bolt-ons; the generation pass itself never
// creates them.
func (r *run) reportStreaksAndRest() {
	for _, es := range r.emps {
		if streakStart, length := longestStreak(es.worked); length > r.opts.MaxConsecutiveDays {
			r.addViolation(model.Violation{
				Date:       streakStart,
				Kind:       model.ViolationMaxDaysExceeded,
				EmployeeID: es.emp.ID,
				Detail:     fmt.Sprintf("%d consecutive days worked exceeds the maximum of %d", length, r.opts.MaxConsecutiveDays),
			})
		}

		for i := 1; i < len(es.intervals); i++ {
			prev, next := es.intervals[i-1], es.intervals[i]
			gap := next.startAt().Sub(prev.endAt()).Hours()
			if gap < 0 {
				gap = 0
			}
			if gap < r.opts.MinRestHours && prev.dateStr != next.dateStr {
				r.addViolation(model.Violation{
					Date:       next.dateStr,
					Kind:       model.ViolationRestViolation,
					EmployeeID: es.emp.ID,
					Detail:     fmt.Sprintf("rest gap of %.1fh before shift is below the minimum of %.1fh", gap, r.opts.MinRestHours),
				})
			}
		}
	}
}

// longestStreak returns the start date and length of the longest run of
// consecutive worked dates.
func longestStreak(worked map[string]bool) (string, int) {
	dates := make([]string, 0, len(worked))
	for d := range worked {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	bestStart, bestLen := "", 0
	for i := 0; i < len(dates); {
		start := dates[i]
		d, err := model.ParseDate(start)
		if err != nil {
			i++
			continue
		}
		length := 1
		for worked[d.AddDate(0, 0, length).Format(model.DateLayout)] {
			length++
		}
		if length > bestLen {
			bestStart, bestLen = start, length
		}
		// Skip past this streak.
		next := d.AddDate(0, 0, length)
		for i < len(dates) && dates[i] < next.Format(model.DateLayout) {
			i++
		}
	}
	return bestStart, bestLen
}

// buildResult sorts assignments, totals and violations into their contractual
// orders and assembles the result.
func (r *run) buildResult() *model.ScheduleResult {
	sort.Slice(r.assignments, func(i, j int) bool {
		a, b := r.assignments[i], r.assignments[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Location != b.Location {
			return model.LocationRank(a.Location) < model.LocationRank(b.Location)
		}
		if a.Block != b.Block {
			return a.Block < b.Block
		}
		return a.EmployeeID < b.EmployeeID
	})

	sort.Slice(r.violations, func(i, j int) bool {
		a, b := r.violations[i], r.violations[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Location != b.Location {
			return model.LocationRank(a.Location) < model.LocationRank(b.Location)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		return a.Detail < b.Detail
	})

	totals := make([]model.EmployeeTotals, 0, len(r.emps))
	for _, es := range r.emps {
		t := model.EmployeeTotals{
			EmployeeID:  es.emp.ID,
			Week1Hours:  es.weekHours[0],
			Week2Hours:  es.weekHours[1],
			WeekendDays: es.weekendDays,
			Opens:       es.opens,
			Closes:      es.closes,
			Locations:   make(map[model.LocationID]int, len(es.locCounts)),
		}
		for loc, n := range es.locCounts {
			t.Locations[loc] = n
		}
		for dateStr := range es.worked {
			d, err := model.ParseDate(dateStr)
			if err != nil {
				continue
			}
			if r.weekOf(d) == 0 {
				t.Week1Days++
			} else {
				t.Week2Days++
			}
		}
		totals = append(totals, t)
	}

	return &model.ScheduleResult{
		Assignments:      r.assignments,
		TotalsByEmployee: totals,
		Violations:       r.violations,
	}
}
