package checkout

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Busy reports whether an attempt is in flight.
func (s State) Busy() bool {
	return s == StateValidating || s == StateSubmitting
}

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) String() string {
	return string(s)
}

var validNext = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateSubmitting, StateFailed},
	StateSubmitting: {StateSucceeded, StateFailed},
	// a finished attempt may be retried directly or reset
	StateSucceeded: {StateIdle, StateValidating},
	StateFailed:    {StateIdle, StateValidating},
}

func CanTransitionTo(from, to State) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}
