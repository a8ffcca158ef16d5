package events

// Status is the closed set of alert lifecycle states.
//
// The lifecycle is ISSUED -> VIEWED -> IN_PROGRESS -> RESOLVED, with
// CANCELLED reachable from any non-terminal state. Transitions are triggered
// by operators outside the pipeline; the pipeline itself only ever creates
// alerts in the ISSUED state.
type Status string

const (
	StatusIssued     Status = "ISSUED"
	StatusViewed     Status = "VIEWED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusCancelled  Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIssued, StatusViewed, StatusInProgress, StatusResolved, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// Active reports whether the alert still demands operator attention.
// There is no automatic expiry transition; this is a derived predicate.
func (s Status) Active() bool {
	return s == StatusIssued || s == StatusInProgress
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusIssued:
		return next == StatusViewed
	case StatusViewed:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusResolved
	default:
		return false
	}
}
