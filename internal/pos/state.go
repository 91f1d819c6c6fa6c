package pos

// State is the checkout orchestrator state. A checkout attempt moves
// Idle -> Validating -> Submitting -> Committed or Failed, and always
// returns to Idle once the outcome has been reported.
type State string

const (
	StateIdle       State = "IDLE"
	StateValidating State = "VALIDATING"
	StateSubmitting State = "SUBMITTING"
	StateCommitted  State = "COMMITTED"
	StateFailed     State = "FAILED"
)

// Busy reports whether a checkout attempt is underway. Cart mutations are
// rejected while the orchestrator is busy.
func (s State) Busy() bool {
	return s == StateValidating || s == StateSubmitting
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}
