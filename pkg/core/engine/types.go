package engine

import (
	"sort"
	"time"

	"github.com/greystones/roster/pkg/core/calendar"
	"github.com/greystones/roster/pkg/core/model"
)

// phase tracks the run's state machine. Each phase only ever advances.
type phase int

const (
	phaseBuilding phase = iota
	phaseAssigning
	phaseReporting
	phaseComplete
)

// interval is one occupied time range of an employee, used for overlap, rest
// and clopen checks.
type interval struct {
	date     time.Time
	dateStr  string
	startMin int
	endMin   int
}

func (iv interval) startAt() time.Time {
	return iv.date.Add(time.Duration(iv.startMin) * time.Minute)
}

func (iv interval) endAt() time.Time {
	return iv.date.Add(time.Duration(iv.endMin) * time.Minute)
}

// employeeState carries one employee's prepared reference data and running
// totals for the duration of a run.
type employeeState struct {
	emp         model.Employee
	windows     map[string][]model.Window
	roles       map[model.Role]bool
	unavailable map[string]bool
	preferred   map[model.LocationID]bool

	weekHours   [2]float64
	weekendDays int
	opens       int
	closes      int
	locCounts   map[model.LocationID]int
	worked      map[string]bool
	intervals []interval // kept sorted by start instant

	// startHistory holds start clocks in placement order so an unplace can
	// restore the previous value; lastStart is its top entry.
	startHistory []string
	lastStart    string
}

func (es *employeeState) holdsAny(roles ...model.Role) bool {
	for _, role := range roles {
		if es.roles[role] {
			return true
		}
	}
	return false
}

// addInterval inserts keeping the slice sorted by start instant.
func (es *employeeState) addInterval(iv interval) {
	idx := sort.Search(len(es.intervals), func(i int) bool {
		return es.intervals[i].startAt().After(iv.startAt())
	})
	es.intervals = append(es.intervals, interval{})
	copy(es.intervals[idx+1:], es.intervals[idx:])
	es.intervals[idx] = iv
}

func (es *employeeState) removeInterval(iv interval) {
	for i, have := range es.intervals {
		if have == iv {
			es.intervals = append(es.intervals[:i], es.intervals[i+1:]...)
			return
		}
	}
}

// overlapsAny reports whether the candidate interval overlaps an existing one.
func (es *employeeState) overlapsAny(iv interval) bool {
	for _, have := range es.intervals {
		if have.startAt().Before(iv.endAt()) && iv.startAt().Before(have.endAt()) {
			return true
		}
	}
	return false
}

// restGapHours returns the smallest rest gap the candidate interval would
// have against the employee's assignments on other dates, or ok=false when
// there are none. Same-date stacking is governed by the overlap and float
// checks, not the rest minimum.
func (es *employeeState) restGapHours(iv interval) (float64, bool) {
	best := 0.0
	found := false
	for _, have := range es.intervals {
		if have.dateStr == iv.dateStr {
			continue
		}
		var gap float64
		if !have.endAt().After(iv.startAt()) {
			gap = iv.startAt().Sub(have.endAt()).Hours()
		} else if !iv.endAt().After(have.startAt()) {
			gap = have.startAt().Sub(iv.endAt()).Hours()
		} else {
			gap = 0 // overlap
		}
		if !found || gap < best {
			best = gap
			found = true
		}
	}
	return best, found
}

// gapAfterPreviousDay returns the rest gap between the employee's latest
// assignment on the previous calendar day and the candidate interval.
func (es *employeeState) gapAfterPreviousDay(iv interval) (float64, bool) {
	prevDay := iv.date.AddDate(0, 0, -1).Format(model.DateLayout)
	var latest *interval
	for i := range es.intervals {
		have := &es.intervals[i]
		if have.dateStr == prevDay && (latest == nil || have.endMin > latest.endMin) {
			latest = have
		}
	}
	if latest == nil {
		return 0, false
	}
	return iv.startAt().Sub(latest.endAt()).Hours(), true
}

// streakWith returns the length of the consecutive worked-day streak the
// given date would belong to.
func (es *employeeState) streakWith(d time.Time) int {
	streak := 1
	for back := d.AddDate(0, 0, -1); es.worked[back.Format(model.DateLayout)]; back = back.AddDate(0, 0, -1) {
		streak++
	}
	for fwd := d.AddDate(0, 0, 1); es.worked[fwd.Format(model.DateLayout)]; fwd = fwd.AddDate(0, 0, 1) {
		streak++
	}
	return streak
}

// dayBounds is the earliest start and latest end of a location's blocks on
// one date, used for the opens/closes totals.
type dayBounds struct {
	openMin  int
	closeMin int
}

// run is the whole mutable state of one scheduling pass.
type run struct {
	req   *model.ScheduleRequest
	opts  Options
	phase phase
	start time.Time

	blocks []calendar.Block
	emps   []*employeeState
	byID   map[string]*employeeState

	assignments []model.Assignment
	violations  []model.Violation

	// managerDates marks dates on which a Store Manager role was issued.
	managerDates map[string]bool

	// bounds maps dateStr+location to that day's opening and closing minutes.
	bounds map[string]map[model.LocationID]dayBounds

	// weekShoulder is true for a week whose every open date classifies as
	// shoulder season; minimum-hour enforcement is skipped for such weeks.
	weekShoulder  [2]bool
	weekHasDemand [2]bool
}

func newRun(req *model.ScheduleRequest, opts Options) (*run, error) {
	start, err := model.ParseDate(req.Period.StartDate)
	if err != nil {
		return nil, err
	}

	blocks, err := calendar.BuildDemand(req)
	if err != nil {
		return nil, err
	}

	r := &run{
		req:          req,
		opts:         opts,
		phase:        phaseBuilding,
		start:        start,
		blocks:       blocks,
		byID:         make(map[string]*employeeState, len(req.Employees)),
		managerDates: make(map[string]bool),
		bounds:       make(map[string]map[model.LocationID]dayBounds),
		weekShoulder: [2]bool{true, true},
	}

	unavailable := make(map[string]map[string]bool)
	for _, u := range req.Unavailability {
		if unavailable[u.EmployeeID] == nil {
			unavailable[u.EmployeeID] = make(map[string]bool)
		}
		unavailable[u.EmployeeID][u.Date] = true
	}

	for _, emp := range req.Employees {
		es := &employeeState{
			emp:         emp,
			windows:     make(map[string][]model.Window, len(emp.Availability)),
			roles:       make(map[model.Role]bool, len(emp.Roles)),
			unavailable: unavailable[emp.ID],
			preferred:   make(map[model.LocationID]bool, len(emp.PreferredLocations)),
			locCounts:   make(map[model.LocationID]int),
			worked:      make(map[string]bool),
		}
		for _, role := range emp.Roles {
			es.roles[role] = true
		}
		for _, loc := range emp.PreferredLocations {
			es.preferred[loc] = true
		}
		for key, raw := range emp.Availability {
			for _, s := range raw {
				w, err := model.ParseWindow(s)
				if err != nil {
					return nil, err
				}
				es.windows[key] = append(es.windows[key], w)
			}
		}
		r.emps = append(r.emps, es)
		r.byID[emp.ID] = es
	}
	// Employees are iterated in ascending id order everywhere; this is the
	// determinism anchor together with the candidate tie-break.
	sort.Slice(r.emps, func(i, j int) bool { return r.emps[i].emp.ID < r.emps[j].emp.ID })

	for i := range blocks {
		b := &blocks[i]
		if r.bounds[b.DateStr] == nil {
			r.bounds[b.DateStr] = make(map[model.LocationID]dayBounds)
		}
		have, ok := r.bounds[b.DateStr][b.Location]
		if !ok {
			r.bounds[b.DateStr][b.Location] = dayBounds{openMin: b.StartMin, closeMin: b.EndMin}
		} else {
			if b.StartMin < have.openMin {
				have.openMin = b.StartMin
			}
			if b.EndMin > have.closeMin {
				have.closeMin = b.EndMin
			}
			r.bounds[b.DateStr][b.Location] = have
		}

		week := r.weekOf(b.Date)
		r.weekHasDemand[week] = true
		if b.Season != calendar.SeasonShoulder {
			r.weekShoulder[week] = false
		}
	}

	return r, nil
}

func (r *run) weekOf(d time.Time) int {
	w := calendar.WeekIndex(r.start, d)
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// place records an assignment and updates the employee's running totals.
func (r *run) place(es *employeeState, b *calendar.Block, role model.Role, source model.AssignmentSource) model.Assignment {
	a := model.Assignment{
		ID:         model.AssignmentID(b.DateStr, b.Location, b.Label, es.emp.ID),
		Date:       b.DateStr,
		Location:   b.Location,
		Block:      b.Label,
		Start:      b.Start,
		End:        b.End,
		EmployeeID: es.emp.ID,
		Role:       role,
		Source:     source,
	}
	r.assignments = append(r.assignments, a)
	r.applyTotals(es, b, role, 1)
	return a
}

// applyTotals adjusts running totals by the given direction (+1 place,
// -1 unplace).
func (r *run) applyTotals(es *employeeState, b *calendar.Block, role model.Role, dir int) {
	iv := interval{date: b.Date, dateStr: b.DateStr, startMin: b.StartMin, endMin: b.EndMin}
	hours := model.ShiftHours(b.StartMin, b.EndMin)
	week := r.weekOf(b.Date)

	if dir > 0 {
		firstToday := !es.worked[b.DateStr]
		es.weekHours[week] += hours
		es.addInterval(iv)
		es.worked[b.DateStr] = true
		if firstToday && b.Weekend {
			es.weekendDays++
		}
		if bounds, ok := r.bounds[b.DateStr][b.Location]; ok {
			if b.StartMin == bounds.openMin {
				es.opens++
			}
			if b.EndMin == bounds.closeMin {
				es.closes++
			}
		}
		es.locCounts[b.Location]++
		es.startHistory = append(es.startHistory, b.Start)
		es.lastStart = b.Start
		if role == model.RoleStoreManager {
			r.managerDates[b.DateStr] = true
		}
		return
	}

	es.weekHours[week] -= hours
	es.removeInterval(iv)
	stillToday := false
	for _, have := range es.intervals {
		if have.dateStr == b.DateStr {
			stillToday = true
			break
		}
	}
	if !stillToday {
		delete(es.worked, b.DateStr)
		if b.Weekend {
			es.weekendDays--
		}
	}
	if bounds, ok := r.bounds[b.DateStr][b.Location]; ok {
		if b.StartMin == bounds.openMin {
			es.opens--
		}
		if b.EndMin == bounds.closeMin {
			es.closes--
		}
	}
	es.locCounts[b.Location]--
	// The swap only ever removes the employee's most recent placement, so
	// popping the history restores the start clock that preceded it.
	if n := len(es.startHistory); n > 0 {
		es.startHistory = es.startHistory[:n-1]
	}
	if n := len(es.startHistory); n > 0 {
		es.lastStart = es.startHistory[n-1]
	} else {
		es.lastStart = ""
	}
	if role == model.RoleStoreManager {
		r.managerDates[b.DateStr] = r.dateHasManager(b.DateStr)
	}
}

func (r *run) dateHasManager(dateStr string) bool {
	for _, a := range r.assignments {
		if a.Date == dateStr && a.Role == model.RoleStoreManager {
			return true
		}
	}
	return false
}

// unplaceWorstNonLeader removes the most recently generated non-leader
// placement of a block for the leadership swap.
func (r *run) unplaceWorstNonLeader(b *calendar.Block) (model.Assignment, bool) {
	for i := len(r.assignments) - 1; i >= 0; i-- {
		a := r.assignments[i]
		if a.Date != b.DateStr || a.Location != b.Location || a.Block != b.Label {
			continue
		}
		if a.Source != model.SourceGenerated || a.Role.Leads() {
			continue
		}
		r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
		r.applyTotals(r.byID[a.EmployeeID], b, a.Role, -1)
		return a, true
	}
	return model.Assignment{}, false
}

// upgradeToLeader relabels one clerk-labelled assignee of the block who holds
// a Team Leader qualification.
func (r *run) upgradeToLeader(b *calendar.Block) bool {
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.Date != b.DateStr || a.Location != b.Location || a.Block != b.Label {
			continue
		}
		if a.Role != model.RoleStoreClerk {
			continue
		}
		if r.byID[a.EmployeeID].roles[model.RoleTeamLeader] {
			a.Role = model.RoleTeamLeader
			return true
		}
	}
	return false
}

// blockLeaderCount counts the block's placements whose role satisfies the
// daily leader minimum under the manager-counts policy flag.
func (r *run) blockLeaderCount(b *calendar.Block) int {
	managerCounts := r.req.LeadershipRules.ManagerSatisfiesLeaderMinimum()
	count := 0
	for _, a := range r.assignments {
		if a.Date != b.DateStr || a.Location != b.Location || a.Block != b.Label {
			continue
		}
		if a.Role == model.RoleTeamLeader || (managerCounts && a.Role == model.RoleStoreManager) {
			count++
		}
	}
	return count
}

// seededIntoBlock returns the employees already holding a placement on this
// block (locked replays and, for coverage purposes, nothing else: ad-hoc
// bolt-ons never consume headcount).
func (r *run) seededIntoBlock(b *calendar.Block) map[string]bool {
	in := make(map[string]bool)
	for _, a := range r.assignments {
		if a.Date == b.DateStr && a.Location == b.Location && a.Block == b.Label {
			in[a.EmployeeID] = true
		}
	}
	return in
}

// leaderRoles returns the roles that satisfy leadership coverage under the
// policy flag.
func (r *run) leaderRoles() []model.Role {
	if r.req.LeadershipRules.ManagerSatisfiesLeaderMinimum() {
		return []model.Role{model.RoleTeamLeader, model.RoleStoreManager}
	}
	return []model.Role{model.RoleTeamLeader}
}

// roleFor picks the role label for a placement the way the roster reads best:
// the day's first available Store Manager keeps the manager label, leaders
// keep theirs, everyone else staffs as clerk. Role-specific blocks always get
// their required role.
func (r *run) roleFor(es *employeeState, b *calendar.Block) model.Role {
	if b.RequiredRole != "" {
		return b.RequiredRole
	}
	if es.roles[model.RoleStoreManager] && !r.managerDates[b.DateStr] {
		return model.RoleStoreManager
	}
	if es.roles[model.RoleTeamLeader] {
		return model.RoleTeamLeader
	}
	return model.RoleStoreClerk
}

// leaderRoleFor picks the leadership label for a swapped-in candidate.
func (r *run) leaderRoleFor(es *employeeState) model.Role {
	if es.roles[model.RoleTeamLeader] {
		return model.RoleTeamLeader
	}
	return model.RoleStoreManager
}

func (r *run) addViolation(v model.Violation) {
	r.violations = append(r.violations, v)
}
