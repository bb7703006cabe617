package core

// StatementState is the classified execution state of a remote statement.
// The service reports free-form state strings; everything is folded into
// this closed set, with StateUnknown as the explicit catch-all.
type StatementState int

const (
	StateUnknown StatementState = iota
	StatePending
	StateSucceeded
	StateFailed
)

// StatementStateFromString maps a server-reported state string into a
// StatementState. Unrecognized values map to StateUnknown.
func StatementStateFromString(s string) StatementState {
	switch s {
	case "SUBMITTED", "RUNNING", "PENDING", "EXECUTING":
		return StatePending

	case "SUCCEEDED", "SUCCESS", "COMPLETED":
		return StateSucceeded

	case "FAILED", "ERROR", "CANCELLED":
		return StateFailed

	default:
		return StateUnknown
	}
}

func (s StatementState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further polling should happen for this state.
func (s StatementState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}
