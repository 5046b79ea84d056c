package project

// Derive maps an external snapshot to a lifecycle status.
func Derive(snap *Snapshot) Status {
	if snap == nil {
		return StatusTodo
	}
	switch snap.Kind {
	case KindRepo:
		if snap.Archived {
			return StatusDone
		}
		return StatusInProgress
	case KindPR:
		if snap.Merged {
			return StatusDone
		}
		if snap.Closed {
			return StatusBlocked
		}
		return StatusInProgress
	case KindIssue:
		if snap.Closed {
			return StatusDone
		}
		return StatusInProgress
	default:
		return StatusTodo
	}
}

// IsTerminal reports whether automated refresh must never move s.
func IsTerminal(s Status) bool {
	return s == StatusDone || s == StatusShipped || s == StatusPaid
}

func rank(s Status) int {
	switch s {
	case StatusInProgress, StatusBlocked:
		return 1
	case StatusDone:
		return 2
	case StatusShipped:
		return 3
	case StatusPaid:
		return 4
	default:
		return 0
	}
}

// Reconcile returns the status a project should hold after an automated
// refresh produced snap. Terminal statuses never move, a manually set
// blocked status only advances, and no status ever drops to a lower rank.
func Reconcile(current Status, manual bool, snap *Snapshot) Status {
	if IsTerminal(current) {
		return current
	}
	derived := Derive(snap)
	if rank(derived) < rank(current) {
		return current
	}
	if manual && current == StatusBlocked && rank(derived) <= rank(current) {
		return current
	}
	return derived
}

// ManuallySettable reports whether s may be set directly by a user.
func ManuallySettable(s Status) bool {
	switch s {
	case StatusDone, StatusShipped, StatusPaid, StatusBlocked:
		return true
	default:
		return false
	}
}
