package engine

import (
	"sort"
	"time"

	"github.com/greystones/roster/pkg/core/calendar"
	"github.com/greystones/roster/pkg/core/model"
)

// candidate is one eligible employee with their soft score for a block.
// Lower scores rank better.
type candidate struct {
	es    *employeeState
	score float64
}

// eligible runs the hard-constraint checks for one employee against one
// block. The returned reason names the first failing constraint; it feeds
// both candidate filtering and lock replay validation.
func (r *run) eligible(es *employeeState, b *calendar.Block) (bool, string) {
	if es.unavailable[b.DateStr] {
		return false, "employee is unavailable on this date"
	}

	if !r.coversBlock(es, b.Date, b.StartMin, b.EndMin) {
		return false, "availability windows do not cover the block"
	}

	if b.RequiredRole != "" {
		if !es.roles[b.RequiredRole] {
			return false, "employee lacks the required role"
		}
	} else if !es.holdsAny(model.RoleStoreClerk, model.RoleTeamLeader, model.RoleStoreManager) {
		return false, "employee holds no floor-qualified role"
	}

	hours := model.ShiftHours(b.StartMin, b.EndMin)
	week := r.weekOf(b.Date)
	if es.weekHours[week]+hours > es.emp.MaxHoursPerWeek+1e-9 {
		return false, "assignment would exceed max weekly hours"
	}

	iv := interval{date: b.Date, dateStr: b.DateStr, startMin: b.StartMin, endMin: b.EndMin}
	if es.worked[b.DateStr] {
		if !r.req.Coverage.AllowFloat {
			return false, "employee already assigned on this date"
		}
		if es.overlapsAny(iv) {
			return false, "assignment overlaps an existing one"
		}
	}

	if gap, ok := es.restGapHours(iv); ok && gap < r.opts.MinRestHours && !r.req.Constraints.EmergencyClopenOverride {
		return false, "rest gap below the configured minimum"
	}

	if !es.worked[b.DateStr] && es.streakWith(b.Date) > r.opts.MaxConsecutiveDays {
		return false, "assignment would exceed max consecutive days"
	}

	if es.emp.Student && b.Season == calendar.SeasonShoulder && !b.Weekend {
		return false, "students are not scheduled on shoulder-season weekdays"
	}

	return true, ""
}

func (r *run) coversBlock(es *employeeState, d time.Time, startMin, endMin int) bool {
	for _, w := range es.windows[model.DayKey(d)] {
		if w.Covers(startMin, endMin) {
			return true
		}
	}
	return false
}

// score computes the soft ranking of an eligible candidate. Lower is better.
// Terms, in the order the weights document them: fairness deficit against the
// proportional weekly-minimum share, leadership bonus while the block still
// needs a leader, priority tier, clopen penalty, start-time consistency,
// preferred location, manager weekend preference.
func (r *run) score(es *employeeState, b *calendar.Block, needLeader bool) float64 {
	w := r.opts.Weights
	s := 0.0

	week := r.weekOf(b.Date)
	dayOfWeek := int(b.Date.Sub(r.start).Hours()/24) % 7
	share := es.emp.MinHoursPerWeek * float64(dayOfWeek+1) / 7
	if deficit := share - es.weekHours[week]; deficit > 0 {
		s -= w.Fairness * deficit
	}

	if needLeader {
		for _, role := range r.leaderRoles() {
			if es.roles[role] {
				s -= w.Leadership
				break
			}
		}
	}

	s += w.Tier * float64(es.emp.PriorityTier.Rank())

	iv := interval{date: b.Date, dateStr: b.DateStr, startMin: b.StartMin, endMin: b.EndMin}
	if gap, ok := es.gapAfterPreviousDay(iv); ok && gap < clopenComfortHours {
		s += w.Clopen
	}

	if es.lastStart != "" && es.lastStart != b.Start {
		s += w.Consistency
	}

	if es.preferred[b.Location] {
		s -= w.PreferredLocation
	}

	if b.Weekend && es.roles[model.RoleStoreManager] {
		target := r.req.LeadershipRules.ManagerMinWeekendsPerMonth
		if r.req.History.ManagerWeekendsWorkedThisMonth+es.weekendDays < target {
			s -= w.ManagerWeekend
		}
	}

	return s
}

// rankCandidates returns every eligible candidate for a block ordered best to
// worst, ties broken by ascending employee id. That tie-break is part of the
// contract, not an implementation accident.
func (r *run) rankCandidates(b *calendar.Block, inBlock map[string]bool, needLeader bool) []candidate {
	var cands []candidate
	for _, es := range r.emps {
		if inBlock[es.emp.ID] {
			continue
		}
		if ok, _ := r.eligible(es, b); !ok {
			continue
		}
		cands = append(cands, candidate{es: es, score: r.score(es, b, needLeader)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		return cands[i].es.emp.ID < cands[j].es.emp.ID
	})
	return cands
}
