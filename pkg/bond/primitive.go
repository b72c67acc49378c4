package bond

import "fmt"

// State is the radio-level bond state of an address.
type State uint8

const (
	// StateNone means no bond exists.
	StateNone State = iota

	// StateBonding means a bond request is in progress.
	StateBonding

	// StateBonded means the bond is established.
	StateBonded
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateBonding:
		return "BONDING"
	case StateBonded:
		return "BONDED"
	default:
		return "UNKNOWN"
	}
}

// EventType distinguishes bond notifications.
type EventType uint8

const (
	// EventStateChanged reports a bond state transition.
	EventStateChanged EventType = iota

	// EventPasskeyRequest reports that the radio needs passkey confirmation.
	EventPasskeyRequest
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventPasskeyRequest:
		return "PASSKEY_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// Event is a notification from the radio stack.
type Event struct {
	Type    EventType
	Address string

	// State and Previous are set for EventStateChanged.
	State    State
	Previous State

	// Passkey is set for EventPasskeyRequest.
	Passkey uint32

	// Reason is an optional radio-specific failure reason.
	Reason int
}

// String returns a short description for logs.
func (e Event) String() string {
	switch e.Type {
	case EventStateChanged:
		return fmt.Sprintf("%s %s->%s", e.Address, e.Previous, e.State)
	case EventPasskeyRequest:
		return fmt.Sprintf("%s passkey request", e.Address)
	default:
		return fmt.Sprintf("%s %s", e.Address, e.Type)
	}
}

// Primitive is the radio stack's bond API.
// Requests return once issued; outcomes arrive through subscriptions.
type Primitive interface {
	// CreateBond starts bonding with address.
	CreateBond(address string) error

	// RemoveBond starts removing the bond with address.
	RemoveBond(address string) error

	// ConfirmPasskey answers a pending passkey request.
	ConfirmPasskey(address string, accept bool) error

	// BondState returns the current bond state of address.
	BondState(address string) State

	// Subscribe registers fn for notifications about address. fn may be
	// called from any goroutine. The returned function unsubscribes.
	Subscribe(address string, fn func(Event)) (unsubscribe func())
}
