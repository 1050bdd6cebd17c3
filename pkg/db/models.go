package db

import "time"

// ScheduleRun is a persisted scheduling run: the request it was generated
// from, the result it produced, and the lock set that was honoured.
type ScheduleRun struct {
	ID          string
	CreatedAt   time.Time
	PeriodStart string
	Weeks       int
	Request     []byte
	Result      []byte
	LockedIDs   []string
}
