package fastpair

// State is the position of a pairing session in its state machine.
type State uint8

const (
	StateIdle State = iota
	StateResolvingAddress
	StateCreatingBond
	StateExchangingKey
	StateAwaitingPasskeyConfirmation
	StatePaired
	StateFailed
	StateUnpairing
	StateUnpaired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateResolvingAddress:
		return "RESOLVING_ADDRESS"
	case StateCreatingBond:
		return "CREATING_BOND"
	case StateExchangingKey:
		return "EXCHANGING_KEY"
	case StateAwaitingPasskeyConfirmation:
		return "AWAITING_PASSKEY_CONFIRMATION"
	case StatePaired:
		return "PAIRED"
	case StateFailed:
		return "FAILED"
	case StateUnpairing:
		return "UNPAIRING"
	case StateUnpaired:
		return "UNPAIRED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StatePaired || s == StateFailed || s == StateUnpaired
}

// StateObserver is told about every state transition of every session.
// It runs on the session goroutine and must not block.
type StateObserver func(from, to State)
