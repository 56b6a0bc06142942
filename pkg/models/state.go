package models

// ProblemState tracks how far a session has come in understanding its
// problem. It advances only through state updates emitted by
// specialists after a complete run.
type ProblemState string

const (
	// ProblemUndefined means no framed problem exists yet.
	ProblemUndefined ProblemState = "undefined"
	// ProblemFramed means the problem has a clear statement.
	ProblemFramed ProblemState = "framed"
	// ProblemValidated means the framing has been checked against data.
	ProblemValidated ProblemState = "validated"
)

// Valid returns true if the state is a known value.
func (s ProblemState) Valid() bool {
	switch s {
	case ProblemUndefined, ProblemFramed, ProblemValidated:
		return true
	default:
		return false
	}
}

// DecisionState tracks whether the session has an open or settled
// decision on its table.
type DecisionState string

const (
	// DecisionNone means no decision is in play.
	DecisionNone DecisionState = "none"
	// DecisionOpen means options exist but nothing is settled.
	DecisionOpen DecisionState = "open"
	// DecisionDecided means a direction has been chosen.
	DecisionDecided DecisionState = "decided"
)

// Valid returns true if the state is a known value.
func (s DecisionState) Valid() bool {
	switch s {
	case DecisionNone, DecisionOpen, DecisionDecided:
		return true
	default:
		return false
	}
}

// StateUpdates is a partial patch of session state emitted by a
// specialist. Empty fields leave the corresponding state untouched.
type StateUpdates struct {
	ProblemState  ProblemState  `json:"problem_state,omitempty"`
	DecisionState DecisionState `json:"decision_state,omitempty"`
}

// Empty returns true if the patch changes nothing.
func (u StateUpdates) Empty() bool {
	return u.ProblemState == "" && u.DecisionState == ""
}
