package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the pairing session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow relative to the seeker.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Operation is the public operation that owns the session.
	Operation Operation `cbor:"6,keyasint,omitempty"`

	// Address is the accessory radio address.
	Address string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"` // Exchange layer
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Session state machine
	Bond        *BondEvent        `cbor:"12,keyasint,omitempty"` // Radio notification
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates data received from the accessory or radio.
	DirectionIn Direction = 0
	// DirectionOut indicates data sent to the accessory or radio.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerBond is the radio bond primitive.
	LayerBond Layer = 0
	// LayerExchange is the key-based pairing handshake.
	LayerExchange Layer = 1
	// LayerSession is the pairing state machine.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBond:
		return "BOND"
	case LayerExchange:
		return "EXCHANGE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a handshake message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryNotification indicates a radio notification.
	CategoryNotification Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryNotification:
		return "NOTIFICATION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Operation identifies the public call that started a session.
type Operation uint8

const (
	// OperationNone is used for events outside a pair/unpair call.
	OperationNone Operation = 0
	// OperationPair is Pair or PairWithKey.
	OperationPair Operation = 1
	// OperationUnpair is Unpair.
	OperationUnpair Operation = 2
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OperationNone:
		return "NONE"
	case OperationPair:
		return "PAIR"
	case OperationUnpair:
		return "UNPAIR"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures a handshake message without its content.
type MessageEvent struct {
	// Type of handshake message.
	Type MessageType `cbor:"1,keyasint"`

	// Size is the payload size in bytes.
	Size int `cbor:"2,keyasint"`
}

// MessageType identifies handshake messages.
type MessageType uint8

const (
	// MessageKeyBasedPairing is the key-based pairing request/response.
	MessageKeyBasedPairing MessageType = 0
	// MessagePasskey is a passkey block.
	MessagePasskey MessageType = 1
	// MessageAccountKey is the account key write.
	MessageAccountKey MessageType = 2
	// MessageAdditionalData is sealed additional data (device name).
	MessageAdditionalData MessageType = 3
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageKeyBasedPairing:
		return "KEY_BASED_PAIRING"
	case MessagePasskey:
		return "PASSKEY"
	case MessageAccountKey:
		return "ACCOUNT_KEY"
	case MessageAdditionalData:
		return "ADDITIONAL_DATA"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures state machine transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// BondEvent captures a radio bond notification.
type BondEvent struct {
	// Type is the notification type name.
	Type string `cbor:"1,keyasint"`

	// State is the bond state after the notification.
	State string `cbor:"2,keyasint,omitempty"`

	// PasskeyRequested is set for passkey requests. The passkey itself is
	// not recorded.
	PasskeyRequested bool `cbor:"3,keyasint,omitempty"`

	// Reason is the radio failure reason (if any).
	Reason int `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Kind is the error kind name (if applicable).
	Kind string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
