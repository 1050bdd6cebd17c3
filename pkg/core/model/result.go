package model

import "github.com/google/uuid"

// AssignmentSource records how an assignment entered the result.
type AssignmentSource string

const (
	SourceGenerated AssignmentSource = "generated"
	SourceLocked    AssignmentSource = "locked"
	SourceAdHoc     AssignmentSource = "ad_hoc"
)

// Assignment is one employee placed on one block. Immutable once a run is
// finalized; replaceable only through lock-and-regenerate.
type Assignment struct {
	ID         string           `json:"id"`
	Date       string           `json:"date"`
	Location   LocationID       `json:"location"`
	Block      string           `json:"block"`
	Start      string           `json:"start"`
	End        string           `json:"end"`
	EmployeeID string           `json:"employee_id"`
	Role       Role             `json:"role"`
	Source     AssignmentSource `json:"source"`
}

// assignmentNamespace anchors the v5 UUID derivation of assignment IDs.
var assignmentNamespace = uuid.MustParse("8f1d2c64-55a1-4c51-9f14-2b3a7e6d9c01")

// AssignmentID derives the deterministic identifier of an assignment from the
// fields that survive a regeneration unchanged. A locked assignment therefore
// keeps its ID across runs by construction.
func AssignmentID(date string, location LocationID, block, employeeID string) string {
	name := date + "|" + string(location) + "|" + block + "|" + employeeID
	return uuid.NewSHA1(assignmentNamespace, []byte(name)).String()
}

// ViolationKind enumerates every constraint failure the engine reports.
type ViolationKind string

const (
	ViolationCoverageGap     ViolationKind = "coverage_gap"
	ViolationLeaderGap       ViolationKind = "leader_gap"
	ViolationRoleMissing     ViolationKind = "role_missing"
	ViolationMinHoursUnmet   ViolationKind = "min_hours_unmet"
	ViolationRestViolation   ViolationKind = "rest_violation"
	ViolationMaxDaysExceeded ViolationKind = "max_days_exceeded"
	ViolationManagerDaysOff  ViolationKind = "manager_consecutive_days_off"
	ViolationAdHocConflict   ViolationKind = "ad_hoc_conflict"
)

// Violation is one recorded constraint failure. Runtime constraint failures
// never abort a run; every one encountered surfaces exactly once.
type Violation struct {
	Date       string        `json:"date"`
	Location   LocationID    `json:"location,omitempty"`
	Block      string        `json:"block,omitempty"`
	Kind       ViolationKind `json:"kind"`
	EmployeeID string        `json:"employee_id,omitempty"`
	Detail     string        `json:"detail"`
}

// EmployeeTotals aggregates one employee's placements over the period.
type EmployeeTotals struct {
	EmployeeID  string             `json:"employee_id"`
	Week1Hours  float64            `json:"week1_hours"`
	Week2Hours  float64            `json:"week2_hours"`
	Week1Days   int                `json:"week1_days"`
	Week2Days   int                `json:"week2_days"`
	WeekendDays int                `json:"weekend_days"`
	Opens       int                `json:"opens"`
	Closes      int                `json:"closes"`
	Locations   map[LocationID]int `json:"per_location_counts"`
}

// ScheduleResult is the complete output of one engine run. Assignments are
// sorted by date, location, block, employee; violations by date, location,
// kind, employee; totals by employee id.
type ScheduleResult struct {
	RunID            string           `json:"run_id,omitempty"`
	Assignments      []Assignment     `json:"assignments"`
	TotalsByEmployee []EmployeeTotals `json:"totals_by_employee"`
	Violations       []Violation      `json:"violations"`
	LockedIDs        []string         `json:"locked_ids,omitempty"`
}

// AssignmentByID returns the assignment carrying the given identifier.
func (r *ScheduleResult) AssignmentByID(id string) (Assignment, bool) {
	for _, a := range r.Assignments {
		if a.ID == id {
			return a, true
		}
	}
	return Assignment{}, false
}
