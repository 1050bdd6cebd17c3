// Package engine turns the calendar's block demand, the employee pool and the
// constraint rules into assignments plus a violation report. The computation
// is a pure single-goroutine batch: identical inputs produce byte-identical
// output, anchored by the candidate tie-break on ascending employee id.
package engine

import (
	"fmt"

	"github.com/greystones/roster/pkg/core/calendar"
	"github.com/greystones/roster/pkg/core/model"
)

const (
	// DefaultMinRestHours is the minimum gap between two shifts unless the
	// emergency clopen override is set.
	DefaultMinRestHours = 11.0

	// DefaultMaxConsecutiveDays caps the length of a worked-day streak.
	DefaultMaxConsecutiveDays = 6

	// clopenComfortHours is the rest gap under which a legal close-then-open
	// pattern still draws a soft penalty.
	clopenComfortHours = 14.0
)

// Weights tune the soft-score terms. Lower scores rank better, so bonus
// weights subtract and penalty weights add.
type Weights struct {
	// Fairness is applied per hour of deficit against the employee's
	// proportional share of their weekly minimum.
	Fairness float64

	// Leadership is the bonus for a leadership-qualified candidate while the
	// block still needs a leader.
	Leadership float64

	// Tier is applied per tier rank (A=0, B=1, C=2).
	Tier float64

	// Clopen penalizes a close-then-open pattern that is within the rest
	// minimum but tighter than comfortable.
	Clopen float64

	// Consistency penalizes a start time differing from the employee's most
	// recent assigned start time.
	Consistency float64

	// PreferredLocation is the bonus for a block at a preferred location.
	PreferredLocation float64

	// ManagerWeekend is the bonus nudging a Store Manager onto weekend
	// blocks while behind their monthly weekend target.
	ManagerWeekend float64
}

// DefaultWeights is the tuning the engine ships with.
var DefaultWeights = Weights{
	Fairness:          1.0,
	Leadership:        5.0,
	Tier:              1.5,
	Clopen:            0.75,
	Consistency:       0.25,
	PreferredLocation: 0.25,
	ManagerWeekend:    2.0,
}

// Options carries the configurable hard-constraint defaults and soft-score
// weights for one run.
type Options struct {
	MinRestHours       float64
	MaxConsecutiveDays int
	Weights            Weights
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MinRestHours:       DefaultMinRestHours,
		MaxConsecutiveDays: DefaultMaxConsecutiveDays,
		Weights:            DefaultWeights,
	}
}

// Resolve fills zero values from the defaults and applies the request's
// per-run constraint overrides.
func (o Options) Resolve(rules model.ConstraintRules) Options {
	if o.MinRestHours <= 0 {
		o.MinRestHours = DefaultMinRestHours
	}
	if o.MaxConsecutiveDays <= 0 {
		o.MaxConsecutiveDays = DefaultMaxConsecutiveDays
	}
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights
	}
	if rules.MinRestHours > 0 {
		o.MinRestHours = rules.MinRestHours
	}
	if rules.MaxConsecutiveDays > 0 {
		o.MaxConsecutiveDays = rules.MaxConsecutiveDays
	}
	return o
}

// Generate runs one full scheduling pass: demand expansion, ad-hoc seeding,
// the greedy block fill, and the reporting pass. Runtime constraint failures
// are recorded as violations; only configuration problems return an error.
func Generate(req *model.ScheduleRequest, opts Options) (*model.ScheduleResult, error) {
	return generate(req, opts, nil, nil)
}

func generate(req *model.ScheduleRequest, opts Options, locked []model.Assignment, lockedIDs []string) (*model.ScheduleResult, error) {
	r, err := newRun(req, opts.Resolve(req.Constraints))
	if err != nil {
		return nil, err
	}

	if err := r.seedLocked(locked); err != nil {
		return nil, err
	}
	r.seedAdHoc()

	r.phase = phaseAssigning
	for i := range r.blocks {
		r.fillBlock(&r.blocks[i])
	}

	r.phase = phaseReporting
	r.reportWeeklyChecks()

	res := r.buildResult()
	res.LockedIDs = lockedIDs
	r.phase = phaseComplete
	return res, nil
}

// fillBlock assigns candidates to one block until its headcount is met or no
// eligible candidate remains, then settles its leadership requirement.
// Partial failure never aborts the run.
func (r *run) fillBlock(b *calendar.Block) {
	inBlock := r.seededIntoBlock(b)
	filled := len(inBlock)

	for filled < b.Headcount {
		needLeader := b.LeaderRequired && r.blockLeaderCount(b) < r.req.LeadershipRules.MinTeamLeadersEveryOpenDay
		cands := r.rankCandidates(b, inBlock, needLeader)
		if len(cands) == 0 {
			break
		}
		pick := chooseCandidate(cands, r.req.RerollToken)
		role := r.roleFor(pick, b)
		r.place(pick, b, role, model.SourceGenerated)
		inBlock[pick.emp.ID] = true
		filled++
	}

	if b.LeaderRequired {
		r.settleLeadership(b, inBlock, filled)
	}

	if filled < b.Headcount {
		shortfall := b.Headcount - filled
		if b.RequiredRole != "" {
			r.addViolation(model.Violation{
				Date:     b.DateStr,
				Location: b.Location,
				Block:    b.Label,
				Kind:     model.ViolationRoleMissing,
				Detail:   fmt.Sprintf("no eligible %s for %s %s", b.RequiredRole, b.Location, b.Label),
			})
		} else {
			r.addViolation(model.Violation{
				Date:     b.DateStr,
				Location: b.Location,
				Block:    b.Label,
				Kind:     model.ViolationCoverageGap,
				Detail:   fmt.Sprintf("%s staffing short by %d of %d", b.Location, shortfall, b.Headcount),
			})
		}
	}
}

// settleLeadership enforces the daily team-leader minimum for a block: first
// upgrade an already assigned employee holding a Team Leader qualification,
// then swap in a leader-qualified candidate for the worst-ranked placement,
// and only then record a leader gap.
func (r *run) settleLeadership(b *calendar.Block, inBlock map[string]bool, filled int) {
	min := r.req.LeadershipRules.MinTeamLeadersEveryOpenDay

	// Upgrade pass: a clerk-labelled assignee qualified as Team Leader
	// satisfies the requirement without touching the roster.
	for r.blockLeaderCount(b) < min {
		if !r.upgradeToLeader(b) {
			break
		}
	}

	// Swap pass: only useful when the block is full of non-leaders while a
	// leader-qualified candidate is still eligible.
	for r.blockLeaderCount(b) < min && filled >= b.Headcount && b.Headcount > 0 {
		removed, ok := r.unplaceWorstNonLeader(b)
		if !ok {
			break
		}
		delete(inBlock, removed.EmployeeID)
		cands := r.rankCandidates(b, inBlock, true)
		lead, ok := bestLeaderCandidate(cands, r.leaderRoles())
		if !ok {
			// No leader can take the slot after all; restore the removed
			// placement unchanged.
			es := r.byID[removed.EmployeeID]
			r.place(es, b, removed.Role, removed.Source)
			inBlock[removed.EmployeeID] = true
			break
		}
		r.place(lead, b, r.leaderRoleFor(lead), model.SourceGenerated)
		inBlock[lead.emp.ID] = true
	}

	if r.blockLeaderCount(b) < min {
		r.addViolation(model.Violation{
			Date:     b.DateStr,
			Location: b.Location,
			Block:    b.Label,
			Kind:     model.ViolationLeaderGap,
			Detail:   fmt.Sprintf("minimum of %d team leader(s) not met", min),
		})
	}
}

// chooseCandidate selects from the ranked list, rotating the reroll token
// through the candidates tied at the best score. Token zero is the canonical
// ordering.
func chooseCandidate(cands []candidate, token uint) *employeeState {
	tied := 1
	for tied < len(cands) && cands[tied].score == cands[0].score {
		tied++
	}
	return cands[int(token%uint(tied))].es
}

func bestLeaderCandidate(cands []candidate, leaderRoles []model.Role) (*employeeState, bool) {
	for _, c := range cands {
		for _, role := range leaderRoles {
			if c.es.roles[role] {
				return c.es, true
			}
		}
	}
	return nil, false
}
