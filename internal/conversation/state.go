package conversation

// State is the lifecycle of one in-flight turn.
type State int

const (
	StateComposing State = iota
	StateDispatched
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateDispatched:
		return "dispatched"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Observer is told about every state transition of a turn.
type Observer func(sessionID string, state State)
