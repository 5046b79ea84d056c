package project

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrAlreadyClaimed indicates another account holds the work claim.
	ErrAlreadyClaimed = errors.New("project already claimed")
	// ErrNotClaimHolder indicates the actor does not hold the work claim.
	ErrNotClaimHolder = errors.New("work claim held by another account")
	// ErrNotLeader indicates the actor is not the current leader.
	ErrNotLeader = errors.New("actor is not the project leader")
	// ErrConflict indicates the registry changed since it was loaded.
	ErrConflict = errors.New("registry modified concurrently")
)

// LeaderActiveError is returned when a leadership takeover is attempted
// before the current leader has been inactive long enough.
type LeaderActiveError struct {
	DaysInactive  int
	RequiredDays  int
	CurrentLeader string
}

func (e *LeaderActiveError) Error() string {
	return fmt.Sprintf("leader %s was active %d days ago; takeover requires %d days of inactivity",
		e.CurrentLeader, e.DaysInactive, e.RequiredDays)
}
