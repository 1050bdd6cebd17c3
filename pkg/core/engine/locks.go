package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/greystones/roster/pkg/core/calendar"
	"github.com/greystones/roster/pkg/core/model"
)

// InvalidLockError reports a regeneration request whose lock set references a
// nonexistent assignment or one that is no longer hard-valid. The lock is
// rejected outright rather than silently dropped; the caller must resolve the
// conflict before regenerating.
type InvalidLockError struct {
	LockID string
	Reason string
}

func (e *InvalidLockError) Error() string {
	return fmt.Sprintf("invalid lock %s: %s", e.LockID, e.Reason)
}

// Regenerate re-runs the engine while treating the given subset of the prior
// result's assignments as fixed. Locked assignments are replayed first, their
// employees' running totals pre-seeded, and their block headcounts consumed
// before the remaining demand is filled. Locked assignments are never altered
// or removed.
func Regenerate(req *model.ScheduleRequest, prior *model.ScheduleResult, lockedIDs []string, opts Options) (*model.ScheduleResult, error) {
	ids := uniqueSorted(lockedIDs)

	locked := make([]model.Assignment, 0, len(ids))
	for _, id := range ids {
		a, ok := prior.AssignmentByID(id)
		if !ok {
			return nil, &InvalidLockError{LockID: id, Reason: "no assignment with this identifier in the prior run"}
		}
		a.Source = model.SourceLocked
		locked = append(locked, a)
	}

	sort.Slice(locked, func(i, j int) bool {
		a, b := locked[i], locked[j]
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

	return generate(req, opts, locked, ids)
}

// seedLocked replays locked assignments into the run, validating each against
// the current hard constraints. A lock that was valid at original-generation
// time but is no longer (the employee was since marked unavailable, the block
// disappeared from demand, hours were tightened) fails the whole call.
func (r *run) seedLocked(locked []model.Assignment) error {
	for _, a := range locked {
		es, ok := r.byID[a.EmployeeID]
		if !ok {
			return &InvalidLockError{LockID: a.ID, Reason: fmt.Sprintf("employee %s is no longer in the request", a.EmployeeID)}
		}

		var b *calendar.Block
		if strings.HasPrefix(a.Block, "ad-hoc") {
			pseudo, err := r.adHocBlock(a.Date, a.Location, a.Start, a.End)
			if err != nil {
				return &InvalidLockError{LockID: a.ID, Reason: err.Error()}
			}
			b = pseudo
		} else {
			b = r.findBlock(a.Date, a.Location, a.Block)
			if b == nil {
				return &InvalidLockError{LockID: a.ID, Reason: "block no longer exists in the current demand"}
			}
		}

		if ok, reason := r.eligible(es, b); !ok {
			return &InvalidLockError{LockID: a.ID, Reason: reason}
		}
		r.place(es, b, a.Role, model.SourceLocked)
	}
	return nil
}

func (r *run) findBlock(date string, loc model.LocationID, label string) *calendar.Block {
	for i := range r.blocks {
		b := &r.blocks[i]
		if b.DateStr == date && b.Location == loc && b.Label == label {
			return b
		}
	}
	return nil
}

// adHocBlock builds the pseudo block an ad-hoc placement occupies.
func (r *run) adHocBlock(date string, loc model.LocationID, start, end string) (*calendar.Block, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	startMin, err := model.ParseClock(start)
	if err != nil {
		return nil, err
	}
	endMin, err := model.ParseClock(end)
	if err != nil {
		return nil, err
	}
	if endMin <= startMin {
		return nil, fmt.Errorf("booking end %s is not after start %s", end, start)
	}
	season := calendar.SeasonShoulder
	for i := range r.blocks {
		if r.blocks[i].DateStr == date {
			season = r.blocks[i].Season
			break
		}
	}
	return &calendar.Block{
		Date:     d,
		DateStr:  date,
		Location: loc,
		Label:    fmt.Sprintf("ad-hoc %s-%s", start, end),
		StartMin: startMin,
		EndMin:   endMin,
		Start:    model.FormatClock(startMin),
		End:      model.FormatClock(endMin),
		Season:   season,
		Weekend:  model.IsWeekend(d),
	}, nil
}

// seedAdHoc places the request's fixed bolt-on bookings. A booking that
// breaches a hard constraint is recorded as an ad_hoc_conflict and skipped;
// bolt-ons never consume coverage headcount.
func (r *run) seedAdHoc() {
	bookings := make([]model.AdHocBooking, len(r.req.AdHocBookings))
	copy(bookings, r.req.AdHocBookings)
	sort.Slice(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		return a.Start < b.Start
	})

	for _, bk := range bookings {
		es := r.byID[bk.EmployeeID]

		conflict := func(reason string) {
			r.addViolation(model.Violation{
				Date:       bk.Date,
				Location:   bk.Location,
				Kind:       model.ViolationAdHocConflict,
				EmployeeID: bk.EmployeeID,
				Detail:     fmt.Sprintf("ad-hoc booking %s-%s skipped: %s", bk.Start, bk.End, reason),
			})
		}

		b, err := r.adHocBlock(bk.Date, bk.Location, bk.Start, bk.End)
		if err != nil {
			conflict(err.Error())
			continue
		}

		// Already honored as a locked replay of a prior run's booking.
		if r.hasAssignment(b.DateStr, b.Location, b.Label, bk.EmployeeID) {
			continue
		}

		if es.unavailable[bk.Date] {
			conflict("employee is unavailable on this date")
			continue
		}
		if bk.Location == model.LocationBoat && !es.roles[model.RoleBoatCaptain] {
			conflict("employee is not a qualified Boat Captain")
			continue
		}
		if bk.Location != model.LocationBoat && !es.holdsAny(model.RoleStoreClerk, model.RoleTeamLeader, model.RoleStoreManager) {
			conflict("employee holds no floor-qualified role")
			continue
		}
		if !r.coversBlock(es, b.Date, b.StartMin, b.EndMin) {
			conflict("availability windows do not cover the booking")
			continue
		}
		hours := model.ShiftHours(b.StartMin, b.EndMin)
		week := r.weekOf(b.Date)
		if es.weekHours[week]+hours > es.emp.MaxHoursPerWeek+1e-9 {
			conflict("booking would exceed max weekly hours")
			continue
		}
		iv := interval{date: b.Date, dateStr: b.DateStr, startMin: b.StartMin, endMin: b.EndMin}
		if es.overlapsAny(iv) {
			conflict("booking overlaps an existing assignment")
			continue
		}

		role := r.roleFor(es, b)
		if bk.Location == model.LocationBoat {
			role = model.RoleBoatCaptain
		}
		r.place(es, b, role, model.SourceAdHoc)
	}
}

func (r *run) hasAssignment(date string, loc model.LocationID, block, employeeID string) bool {
	for _, a := range r.assignments {
		if a.Date == date && a.Location == loc && a.Block == block && a.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
